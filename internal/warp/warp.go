// Package warp implements the piecewise affine warp that unwraps a face
// photograph onto the canonical texture layout.
//
// Every destination pixel is inverse-mapped through the affine transform of
// the triangle containing its center and sampled bilinearly from the
// source. Pixels outside every triangle keep the engine's background.
package warp

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"facewarp/internal/topology"
	"facewarp/pkg/geometry"
)

// containEps is the barycentric slack of the containment test, so pixel
// centers lying exactly on an edge are not lost to rounding.
const containEps = 1e-9

// Options configure an Engine.
type Options struct {
	// Background fills pixels not covered by any triangle. Nil means fully
	// transparent.
	Background color.Color
	// Workers bounds the number of goroutines rendering bands of one warp.
	// Zero or negative means runtime.NumCPU().
	Workers int
	// Logger receives per-call debug statistics. Nil disables logging.
	Logger *zap.Logger
}

// Engine warps images over a fixed topology. It holds no per-call state and
// is safe for concurrent use.
type Engine struct {
	topo       *topology.Topology
	background color.RGBA
	workers    int
	log        *zap.Logger
}

// NewEngine creates an engine for the given topology.
func NewEngine(topo *topology.Topology, opts Options) *Engine {
	e := &Engine{
		topo:    topo,
		workers: opts.Workers,
		log:     opts.Logger,
	}
	if opts.Background != nil {
		e.background = color.RGBAModel.Convert(opts.Background).(color.RGBA)
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// Topology returns the topology the engine warps over.
func (e *Engine) Topology() *topology.Topology {
	return e.topo
}

// Background returns the premultiplied fill of uncovered pixels.
func (e *Engine) Background() color.RGBA {
	return e.background
}

// triMap is one triangle prepared for rasterization.
type triMap struct {
	index int
	dst   [3]geometry.Point2D
	// m maps destination space to source space.
	m geometry.AffineTransform
	// Inclusive pixel bounds, clipped to the destination.
	minX, minY, maxX, maxY int
}

// Warp resamples src so that each source keypoint lands on the matching
// destination keypoint, producing a width x height image. Precondition
// failures are reported as a *CorrespondenceError before anything is
// allocated.
func (e *Engine) Warp(src image.Image, srcKP, dstKP []geometry.Point2D, width, height int) (*image.RGBA, error) {
	if err := e.check(srcKP, dstKP, width, height); err != nil {
		return nil, err
	}
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptySource
	}

	start := time.Now()
	maps, skipped := e.prepare(srcKP, dstKP, width, height)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if e.background != (color.RGBA{}) {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(e.background), image.Point{}, draw.Src)
	}

	s := newSampler(src)
	e.bands(width, height, func(y0, y1 int) {
		scan(maps, width, y0, y1, func(tm *triMap, x, y int, p geometry.Point2D) {
			dst.SetRGBA(x, y, s.bilinear(tm.m.Apply(p)))
		})
	})

	e.log.Debug("warp complete",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("triangles", len(maps)),
		zap.Int("skipped", skipped),
		zap.Int("workers", e.workers),
		zap.Duration("elapsed", time.Since(start)))
	return dst, nil
}

// Unwrap warps a face onto the canonical layout scaled to width x height.
func (e *Engine) Unwrap(src image.Image, faceKP []geometry.Point2D, width, height int) (*image.RGBA, error) {
	return e.Warp(src, faceKP, e.topo.Destination(width, height), width, height)
}

// Coverage reports, for every destination pixel in row-major order, the
// index of the triangle that owns it, or -1 when no triangle covers it.
// Ownership follows the same rules as Warp.
func (e *Engine) Coverage(dstKP []geometry.Point2D, width, height int) ([]int, error) {
	if err := e.check(dstKP, dstKP, width, height); err != nil {
		return nil, err
	}
	maps, _ := e.prepare(dstKP, dstKP, width, height)

	owner := make([]int, width*height)
	for i := range owner {
		owner[i] = -1
	}
	e.bands(width, height, func(y0, y1 int) {
		scan(maps, width, y0, y1, func(tm *triMap, x, y int, _ geometry.Point2D) {
			owner[y*width+x] = tm.index
		})
	})
	return owner, nil
}

func (e *Engine) check(srcKP, dstKP []geometry.Point2D, width, height int) error {
	fail := func(format string, args ...interface{}) error {
		return &CorrespondenceError{
			Source:      len(srcKP),
			Destination: len(dstKP),
			Expected:    e.topo.Len(),
			Width:       width,
			Height:      height,
			Reason:      fmt.Sprintf(format, args...),
		}
	}

	if len(srcKP) != len(dstKP) {
		return fail("source has %d keypoints, destination has %d", len(srcKP), len(dstKP))
	}
	if n := e.topo.Len(); len(srcKP) != n {
		return fail("got %d keypoints, topology has %d landmarks", len(srcKP), n)
	}
	if width <= 0 || height <= 0 {
		return fail("destination size %dx%d", width, height)
	}
	for i := range srcKP {
		if !srcKP[i].IsFinite() {
			return fail("source keypoint %d is not finite", i)
		}
		if !dstKP[i].IsFinite() {
			return fail("destination keypoint %d is not finite", i)
		}
	}
	return nil
}

// prepare fits the destination-to-source transform of every triangle, in
// triangle set order. Degenerate triangles and triangles entirely outside
// the destination are left out.
func (e *Engine) prepare(srcKP, dstKP []geometry.Point2D, width, height int) ([]triMap, int) {
	n := e.topo.NumTriangles()
	maps := make([]triMap, 0, n)
	skipped := 0
	for i := 0; i < n; i++ {
		tri := e.topo.Triangle(i)
		d := [3]geometry.Point2D{dstKP[tri[0]], dstKP[tri[1]], dstKP[tri[2]]}
		s := [3]geometry.Point2D{srcKP[tri[0]], srcKP[tri[1]], srcKP[tri[2]]}

		m, err := geometry.FitAffine(d, s)
		if err != nil {
			skipped++
			continue
		}

		box := geometry.BoundingBox(d[:])
		tm := triMap{
			index: i,
			dst:   d,
			m:     m,
			// Pixel x is a candidate when its center x+0.5 lies in the box.
			minX: clampInt(pixelIndex(math.Ceil(box.X-0.5), width), 0, width),
			minY: clampInt(pixelIndex(math.Ceil(box.Y-0.5), height), 0, height),
			maxX: clampInt(pixelIndex(math.Floor(box.X+box.Width-0.5), width), -1, width-1),
			maxY: clampInt(pixelIndex(math.Floor(box.Y+box.Height-0.5), height), -1, height-1),
		}
		if tm.minX > tm.maxX || tm.minY > tm.maxY {
			continue
		}
		maps = append(maps, tm)
	}
	return maps, skipped
}

// pixelIndex converts a pixel coordinate to int, first limiting it to
// [-1, size] so far-off keypoints cannot overflow the conversion.
func pixelIndex(v float64, size int) int {
	return int(math.Max(-1, math.Min(float64(size), v)))
}

// bands splits the rows into contiguous bands and renders them in parallel.
// Each band is processed independently, so the output does not depend on
// the number of workers.
func (e *Engine) bands(width, height int, render func(y0, y1 int)) {
	workers := e.workers
	if workers > height {
		workers = height
	}
	if workers <= 1 || width*height < 4096 {
		render(0, height)
		return
	}

	rows := (height + workers - 1) / workers
	var wg sync.WaitGroup
	for y0 := 0; y0 < height; y0 += rows {
		y1 := y0 + rows
		if y1 > height {
			y1 = height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			render(y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}

// scan visits every pixel of rows [y0, y1) whose center lies in a
// triangle. A pixel claimed by an earlier triangle in maps is not visited
// again, which assigns shared-edge pixels to the first triangle.
func scan(maps []triMap, width, y0, y1 int, paint func(tm *triMap, x, y int, p geometry.Point2D)) {
	owned := make([]bool, width*(y1-y0))
	for i := range maps {
		tm := &maps[i]
		ys, ye := tm.minY, tm.maxY
		if ys < y0 {
			ys = y0
		}
		if ye > y1-1 {
			ye = y1 - 1
		}
		for y := ys; y <= ye; y++ {
			row := (y - y0) * width
			cy := float64(y) + 0.5
			for x := tm.minX; x <= tm.maxX; x++ {
				if owned[row+x] {
					continue
				}
				p := geometry.Point2D{X: float64(x) + 0.5, Y: cy}
				if !geometry.InTriangle(p, tm.dst[0], tm.dst[1], tm.dst[2], containEps) {
					continue
				}
				owned[row+x] = true
				paint(tm, x, y, p)
			}
		}
	}
}
