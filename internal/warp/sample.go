package warp

import (
	"image"
	"image/color"
	"math"

	"facewarp/pkg/geometry"
)

// sampler reads premultiplied texels from a source image, with fast paths
// for the in-memory formats produced by the decoders.
type sampler struct {
	src    image.Image
	rgba   *image.RGBA
	nrgba  *image.NRGBA
	bounds image.Rectangle
	w, h   int
}

func newSampler(src image.Image) *sampler {
	b := src.Bounds()
	s := &sampler{src: src, bounds: b, w: b.Dx(), h: b.Dy()}
	switch img := src.(type) {
	case *image.RGBA:
		s.rgba = img
	case *image.NRGBA:
		s.nrgba = img
	}
	return s
}

// texel returns the premultiplied color at (x, y), relative to the bounds
// origin, as values in [0, 255]. Callers pass in-bounds coordinates.
func (s *sampler) texel(x, y int) [4]float64 {
	px, py := s.bounds.Min.X+x, s.bounds.Min.Y+y
	switch {
	case s.rgba != nil:
		i := s.rgba.PixOffset(px, py)
		p := s.rgba.Pix[i : i+4 : i+4]
		return [4]float64{float64(p[0]), float64(p[1]), float64(p[2]), float64(p[3])}
	case s.nrgba != nil:
		i := s.nrgba.PixOffset(px, py)
		p := s.nrgba.Pix[i : i+4 : i+4]
		a := float64(p[3]) / 255
		return [4]float64{float64(p[0]) * a, float64(p[1]) * a, float64(p[2]) * a, float64(p[3])}
	default:
		r, g, b, a := s.src.At(px, py).RGBA()
		return [4]float64{float64(r) / 257, float64(g) / 257, float64(b) / 257, float64(a) / 257}
	}
}

// bilinear samples the source at continuous pixel coordinates, where pixel
// (i, j) covers [i, i+1) x [j, j+1) and its center is at (i+0.5, j+0.5).
// Neighbour indices are clamped to the image, so reads never leave it.
func (s *sampler) bilinear(p geometry.Point2D) color.RGBA {
	x0, tx := s.axis(p.X, s.w)
	y0, ty := s.axis(p.Y, s.h)
	x1 := clampInt(x0+1, 0, s.w-1)
	y1 := clampInt(y0+1, 0, s.h-1)
	x0 = clampInt(x0, 0, s.w-1)
	y0 = clampInt(y0, 0, s.h-1)

	c00 := s.texel(x0, y0)
	c10 := s.texel(x1, y0)
	c01 := s.texel(x0, y1)
	c11 := s.texel(x1, y1)

	var out [4]uint8
	for ch := 0; ch < 4; ch++ {
		top := c00[ch] + (c10[ch]-c00[ch])*tx
		bottom := c01[ch] + (c11[ch]-c01[ch])*tx
		out[ch] = toChannel(top + (bottom-top)*ty)
	}
	return color.RGBA{R: out[0], G: out[1], B: out[2], A: out[3]}
}

// axis splits a continuous coordinate into the index of the lower
// neighbour and the interpolation weight of the upper one.
func (s *sampler) axis(v float64, size int) (int, float64) {
	f := v - 0.5
	// Keep the integer conversion in range for far-off coordinates; the
	// index is clamped afterwards anyway.
	f = math.Max(-1, math.Min(float64(size), f))
	fl := math.Floor(f)
	return int(fl), f - fl
}

// toChannel rounds half up and clamps to [0, 255].
func toChannel(v float64) uint8 {
	v = math.Floor(v + 0.5)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
