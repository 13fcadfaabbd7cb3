// Package view implements the pan/zoom state of a display surface.
//
// A Controller is a small state machine (Idle, Panning) driven by plain
// pointer, wheel and double-click calls, so any UI toolkit can feed it. It
// owns the scale and pan of one surface and exposes the resulting affine
// transform; it never renders anything itself.
package view

import (
	"fmt"
	"math"
	"sync"

	"facewarp/pkg/geometry"
)

// Scale limits. Keeping the scale away from zero keeps the view matrix
// invertible.
const (
	MinScale = 0.01
	MaxScale = 64.0
)

// Wheel zoom factors.
const (
	ZoomInFactor  = 1.1
	ZoomOutFactor = 0.9
)

// State is the interaction state of a controller.
type State int

const (
	Idle State = iota
	Panning
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Panning:
		return "Panning"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a copy of the controller state handed to change listeners.
type Snapshot struct {
	Scale float64
	PanX  float64
	PanY  float64
	State State
}

// Matrix returns the surface-to-viewport transform of the snapshot.
func (s Snapshot) Matrix() geometry.AffineTransform {
	return geometry.ScaleTranslate(s.Scale, s.PanX, s.PanY)
}

// Hooks intercept events before the controller handles them. A hook
// returning true consumes the event. Hooks receive the current view matrix
// so they can map the pointer into surface space.
type Hooks struct {
	PointerDown func(p geometry.Point2D, m geometry.AffineTransform) bool
	PointerMove func(p geometry.Point2D, m geometry.AffineTransform) bool
	PointerUp   func(p geometry.Point2D, m geometry.AffineTransform) bool
	Wheel       func(deltaY float64, p geometry.Point2D, m geometry.AffineTransform) bool
	DoubleClick func(m geometry.AffineTransform) bool
}

// Controller holds the pan/zoom state of one surface. All methods are safe
// to call from several goroutines; the change listener runs outside the
// lock, on the goroutine that caused the change.
type Controller struct {
	mu sync.Mutex

	scale float64
	panX  float64
	panY  float64
	state State
	last  geometry.Point2D

	surface  geometry.Size
	hooks    Hooks
	onChange func(Snapshot)
}

// NewController returns a controller at scale 1 with no pan.
func NewController() *Controller {
	return &Controller{scale: 1}
}

// OnChange registers the redraw callback invoked after every mutation.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// SetHooks installs event interceptors.
func (c *Controller) SetHooks(h Hooks) {
	c.mu.Lock()
	c.hooks = h
	c.mu.Unlock()
}

// SetSurfaceSize records the size of the displayed raster, used by
// FitToViewport.
func (c *Controller) SetSurfaceSize(width, height float64) {
	c.mu.Lock()
	c.surface = geometry.NewSize(width, height)
	c.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// State returns the current interaction state.
func (c *Controller) State() State {
	return c.Snapshot().State
}

// Matrix returns the current surface-to-viewport transform.
func (c *Controller) Matrix() geometry.AffineTransform {
	return c.Snapshot().Matrix()
}

// TransformPoint maps a surface point into viewport coordinates.
func (c *Controller) TransformPoint(x, y float64) geometry.Point2D {
	return c.Matrix().Apply(geometry.Point2D{X: x, Y: y})
}

// InversePoint maps a viewport point back into surface coordinates.
func (c *Controller) InversePoint(x, y float64) geometry.Point2D {
	inv, err := c.Matrix().Inverse()
	if err != nil {
		// The scale is clamped to [MinScale, MaxScale], so this is a bug.
		panic(fmt.Sprintf("view: %v", err))
	}
	return inv.Apply(geometry.Point2D{X: x, Y: y})
}

// HitTest returns the index of the point nearest to the viewport position
// p, if it lies within radius viewport pixels.
func (c *Controller) HitTest(points []geometry.Point2D, p geometry.Point2D, radius float64) (int, bool) {
	m := c.Matrix()
	best, bestDist := -1, radius
	for i, pt := range points {
		if d := m.Apply(pt).Distance(p); d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// PointerDown starts panning from p.
func (c *Controller) PointerDown(p geometry.Point2D) {
	if h := c.hook(func(h Hooks) bool { return h.PointerDown != nil }); h != nil {
		if h.PointerDown(p, c.Matrix()) {
			return
		}
	}
	c.update(func() bool {
		c.state = Panning
		c.last = p
		return true
	})
}

// PointerMove pans by the distance moved since the previous pointer
// event. It is ignored unless the controller is panning.
func (c *Controller) PointerMove(p geometry.Point2D) {
	if h := c.hook(func(h Hooks) bool { return h.PointerMove != nil }); h != nil {
		if h.PointerMove(p, c.Matrix()) {
			return
		}
	}
	c.update(func() bool {
		if c.state != Panning {
			return false
		}
		dx, dy := p.X-c.last.X, p.Y-c.last.Y
		c.last = p
		if dx == 0 && dy == 0 {
			return false
		}
		c.panX += dx
		c.panY += dy
		return true
	})
}

// PointerUp ends panning.
func (c *Controller) PointerUp(p geometry.Point2D) {
	if h := c.hook(func(h Hooks) bool { return h.PointerUp != nil }); h != nil {
		if h.PointerUp(p, c.Matrix()) {
			return
		}
	}
	c.update(func() bool {
		if c.state != Panning {
			return false
		}
		c.state = Idle
		return true
	})
}

// Wheel zooms around p: in by ZoomInFactor when deltaY is negative, out by
// ZoomOutFactor otherwise, a zero delta included.
func (c *Controller) Wheel(deltaY float64, p geometry.Point2D) {
	if h := c.hook(func(h Hooks) bool { return h.Wheel != nil }); h != nil {
		if h.Wheel(deltaY, p, c.Matrix()) {
			return
		}
	}
	if deltaY < 0 {
		c.ZoomBy(ZoomInFactor, p)
		return
	}
	c.ZoomBy(ZoomOutFactor, p)
}

// ZoomBy multiplies the scale by f, keeping the surface point under the
// viewport position p where it is. The scale is clamped to
// [MinScale, MaxScale].
func (c *Controller) ZoomBy(f float64, p geometry.Point2D) {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return
	}
	c.update(func() bool {
		next := clampScale(c.scale * f)
		if next == c.scale {
			return false
		}
		// offset is the surface point under p.
		actual := next / c.scale
		offX, offY := (p.X-c.panX)/c.scale, (p.Y-c.panY)/c.scale
		c.panX -= offX * (actual - 1) * c.scale
		c.panY -= offY * (actual - 1) * c.scale
		c.scale = next
		return true
	})
}

// DoubleClick resets the view to scale 1 without pan.
func (c *Controller) DoubleClick() {
	if h := c.hook(func(h Hooks) bool { return h.DoubleClick != nil }); h != nil {
		if h.DoubleClick(c.Matrix()) {
			return
		}
	}
	c.Reset()
}

// Reset returns to scale 1, no pan, Idle.
func (c *Controller) Reset() {
	c.update(func() bool {
		c.scale, c.panX, c.panY = 1, 0, 0
		c.state = Idle
		return true
	})
}

// FitToViewport scales the surface to fit entirely inside a viewport of the
// given size and moves it to the origin. Nothing happens while the surface
// or viewport size is unknown.
func (c *Controller) FitToViewport(viewportWidth, viewportHeight float64) {
	c.update(func() bool {
		if c.surface.Empty() || viewportWidth <= 0 || viewportHeight <= 0 {
			return false
		}
		c.scale = clampScale(math.Min(viewportWidth/c.surface.Width, viewportHeight/c.surface.Height))
		c.panX, c.panY = 0, 0
		return true
	})
}

// update applies fn under the lock and notifies the listener when fn
// reports a change.
func (c *Controller) update(fn func() bool) {
	c.mu.Lock()
	changed := fn()
	snap := c.snapshotLocked()
	listener := c.onChange
	c.mu.Unlock()

	if changed && listener != nil {
		listener(snap)
	}
}

func (c *Controller) hook(has func(Hooks) bool) *Hooks {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !has(c.hooks) {
		return nil
	}
	h := c.hooks
	return &h
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{Scale: c.scale, PanX: c.panX, PanY: c.panY, State: c.state}
}

func clampScale(s float64) float64 {
	return math.Max(MinScale, math.Min(MaxScale, s))
}
