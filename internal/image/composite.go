package image

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"facewarp/pkg/geometry"
)

// Composite renders layers into a viewport through a pan/zoom matrix.
type Composite struct {
	Width     int
	Height    int
	Layers    []*Layer
	BackColor color.Color
	// View maps layer (surface) coordinates to viewport coordinates.
	View geometry.AffineTransform
}

// NewComposite creates a new Composite with the specified viewport size.
func NewComposite(width, height int) *Composite {
	return &Composite{
		Width:     width,
		Height:    height,
		BackColor: color.Black,
		View:      geometry.Identity(),
	}
}

// AddLayer adds a layer on top of the existing ones.
func (c *Composite) AddLayer(layer *Layer) {
	c.Layers = append(c.Layers, layer)
}

// Render produces the final composited image.
func (c *Composite) Render() *image.RGBA {
	result := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	c.RenderInto(result)
	return result
}

// RenderInto draws the composite into dst, which is typically reused
// between frames.
func (c *Composite) RenderInto(dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c.BackColor), image.Point{}, draw.Src)

	for _, l := range c.Layers {
		if l == nil || l.Image == nil || !l.Visible || l.Opacity <= 0 {
			continue
		}
		RenderView(dst, l.Image, c.View, l.Opacity)
	}
}

// RenderView draws src over dst, mapped by the surface-to-viewport matrix
// m. Magnified rasters use nearest neighbour so pixels stay crisp;
// reductions are filtered bilinearly.
func RenderView(dst draw.Image, src image.Image, m geometry.AffineTransform, opacity float64) {
	// Surface coordinates are relative to the raster origin.
	b := src.Bounds()
	m = m.Compose(geometry.Translation(-float64(b.Min.X), -float64(b.Min.Y)))
	s2d := f64.Aff3{m.A, m.B, m.TX, m.C, m.D, m.TY}

	var interp xdraw.Interpolator = xdraw.ApproxBiLinear
	if m.A >= 1 && m.D >= 1 {
		interp = xdraw.NearestNeighbor
	}

	var opts *xdraw.Options
	if opacity < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)})}
	}
	interp.Transform(dst, s2d, src, b, xdraw.Over, opts)
}
