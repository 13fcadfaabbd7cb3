// Package canvas provides a raster view with drag-to-pan, wheel zoom and
// double-click reset.
package canvas

import (
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	fwimage "facewarp/internal/image"
	"facewarp/internal/view"
	"facewarp/pkg/geometry"
)

// hoverRadius is the pick radius for keypoints, in viewport units.
const hoverRadius = 6

// PanZoomCanvas displays one image through a view.Controller.
type PanZoomCanvas struct {
	widget.BaseWidget

	ctrl   *view.Controller
	raster *fynecanvas.Raster

	mu         sync.Mutex
	image      image.Image
	points     []geometry.Point2D
	background color.Color
	viewport   fyne.Size
	hovered    int

	onHover func(index int, ok bool)
	onView  func(view.Snapshot)
}

var (
	_ fyne.Widget         = (*PanZoomCanvas)(nil)
	_ fyne.Scrollable     = (*PanZoomCanvas)(nil)
	_ fyne.DoubleTappable = (*PanZoomCanvas)(nil)
	_ desktop.Mouseable   = (*PanZoomCanvas)(nil)
	_ desktop.Hoverable   = (*PanZoomCanvas)(nil)
)

// NewPanZoomCanvas creates a canvas whose preferred size is viewport.
func NewPanZoomCanvas(viewport fyne.Size) *PanZoomCanvas {
	pc := &PanZoomCanvas{
		ctrl:       view.NewController(),
		background: color.Black,
		viewport:   viewport,
		hovered:    -1,
	}
	pc.raster = fynecanvas.NewRaster(pc.draw)
	pc.raster.ScaleMode = fynecanvas.ImageScalePixels
	pc.raster.SetMinSize(viewport)

	pc.ctrl.OnChange(func(s view.Snapshot) {
		pc.raster.Refresh()
		pc.mu.Lock()
		cb := pc.onView
		pc.mu.Unlock()
		if cb != nil {
			cb(s)
		}
	})

	pc.ExtendBaseWidget(pc)
	return pc
}

// Controller exposes the view state, e.g. to install hooks.
func (pc *PanZoomCanvas) Controller() *view.Controller {
	return pc.ctrl
}

// CreateRenderer implements fyne.Widget.
func (pc *PanZoomCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(pc.raster)
}

// MinSize returns the configured viewport size.
func (pc *PanZoomCanvas) MinSize() fyne.Size {
	return pc.viewport
}

// SetImage replaces the displayed image. With fit set, the view is fitted
// to the viewport afterwards.
func (pc *PanZoomCanvas) SetImage(img image.Image, fit bool) {
	pc.mu.Lock()
	pc.image = img
	pc.mu.Unlock()

	if img == nil {
		pc.ctrl.SetSurfaceSize(0, 0)
		pc.raster.Refresh()
		return
	}
	b := img.Bounds()
	pc.ctrl.SetSurfaceSize(float64(b.Dx()), float64(b.Dy()))
	if fit {
		pc.FitToViewport()
		return
	}
	pc.raster.Refresh()
}

// Image returns the displayed image.
func (pc *PanZoomCanvas) Image() image.Image {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.image
}

// SetPoints sets the surface points reported by OnHover.
func (pc *PanZoomCanvas) SetPoints(points []geometry.Point2D) {
	pc.mu.Lock()
	pc.points = points
	pc.hovered = -1
	pc.mu.Unlock()
}

// SetBackground sets the color shown around the image.
func (pc *PanZoomCanvas) SetBackground(c color.Color) {
	pc.mu.Lock()
	pc.background = c
	pc.mu.Unlock()
	pc.raster.Refresh()
}

// OnHover sets a callback for the keypoint under the pointer.
func (pc *PanZoomCanvas) OnHover(callback func(index int, ok bool)) {
	pc.mu.Lock()
	pc.onHover = callback
	pc.mu.Unlock()
}

// OnViewChange sets a callback for every pan or zoom change.
func (pc *PanZoomCanvas) OnViewChange(callback func(view.Snapshot)) {
	pc.mu.Lock()
	pc.onView = callback
	pc.mu.Unlock()
}

// FitToViewport fits the image into the current widget size, or the
// preferred viewport before the widget has been laid out.
func (pc *PanZoomCanvas) FitToViewport() {
	size := pc.Size()
	if size.Width <= 0 || size.Height <= 0 {
		size = pc.viewport
	}
	pc.ctrl.FitToViewport(float64(size.Width), float64(size.Height))
}

// ZoomIn zooms around the viewport center.
func (pc *PanZoomCanvas) ZoomIn() {
	pc.ctrl.ZoomBy(view.ZoomInFactor, pc.center())
}

// ZoomOut zooms out around the viewport center.
func (pc *PanZoomCanvas) ZoomOut() {
	pc.ctrl.ZoomBy(view.ZoomOutFactor, pc.center())
}

// ResetView restores scale 1 with no pan.
func (pc *PanZoomCanvas) ResetView() {
	pc.ctrl.Reset()
}

func (pc *PanZoomCanvas) center() geometry.Point2D {
	size := pc.Size()
	return geometry.Rect{Width: float64(size.Width), Height: float64(size.Height)}.Center()
}

func toPoint(p fyne.Position) geometry.Point2D {
	return geometry.Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// Scrolled implements fyne.Scrollable. Fyne reports wheel-up as positive
// DY, the opposite sign of a browser wheel delta. Horizontal-only scrolls
// do not zoom.
func (pc *PanZoomCanvas) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY == 0 {
		return
	}
	pc.ctrl.Wheel(-float64(ev.Scrolled.DY), toPoint(ev.Position))
}

// MouseDown starts panning with the primary button.
func (pc *PanZoomCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	pc.ctrl.PointerDown(toPoint(ev.Position))
}

// MouseUp ends panning.
func (pc *PanZoomCanvas) MouseUp(ev *desktop.MouseEvent) {
	pc.ctrl.PointerUp(toPoint(ev.Position))
}

// MouseIn implements desktop.Hoverable.
func (pc *PanZoomCanvas) MouseIn(*desktop.MouseEvent) {}

// MouseMoved pans while a button is held and reports the hovered keypoint.
func (pc *PanZoomCanvas) MouseMoved(ev *desktop.MouseEvent) {
	p := toPoint(ev.Position)
	pc.ctrl.PointerMove(p)
	pc.updateHover(p)
}

// MouseOut ends any pan, since the release will not be seen.
func (pc *PanZoomCanvas) MouseOut() {
	if pc.ctrl.State() == view.Panning {
		pc.ctrl.PointerUp(geometry.Point2D{})
	}
}

// DoubleTapped resets the view.
func (pc *PanZoomCanvas) DoubleTapped(*fyne.PointEvent) {
	pc.ctrl.DoubleClick()
}

func (pc *PanZoomCanvas) updateHover(p geometry.Point2D) {
	pc.mu.Lock()
	points, cb, prev := pc.points, pc.onHover, pc.hovered
	pc.mu.Unlock()
	if cb == nil || len(points) == 0 {
		return
	}

	idx, ok := pc.ctrl.HitTest(points, p, hoverRadius)
	if !ok {
		idx = -1
	}
	if idx == prev {
		return
	}
	pc.mu.Lock()
	pc.hovered = idx
	pc.mu.Unlock()
	cb(idx, ok)
}

// draw renders the image through the view matrix. The controller works in
// widget units; the raster is in device pixels.
func (pc *PanZoomCanvas) draw(w, h int) image.Image {
	pc.mu.Lock()
	img, bg := pc.image, pc.background
	pc.mu.Unlock()

	comp := fwimage.NewComposite(w, h)
	comp.BackColor = bg
	if img != nil {
		comp.AddLayer(fwimage.NewLayer(img))
	}

	pixelScale := 1.0
	if size := pc.Size(); size.Width > 0 {
		pixelScale = float64(w) / float64(size.Width)
	}
	comp.View = geometry.Scale(pixelScale, pixelScale).Compose(pc.ctrl.Matrix())
	return comp.Render()
}
