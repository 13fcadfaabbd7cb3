// Package topology holds the canonical face mesh: the UV target coordinate of
// every landmark index, the triangles connecting them and the named contours
// drawn by the overlay.
package topology

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"facewarp/pkg/geometry"
)

// ErrInvalidTopology is wrapped by every consistency failure reported by
// Validate.
var ErrInvalidTopology = errors.New("invalid topology")

// minTriangleArea is the smallest UV-space signed area (doubled) accepted for
// a triangle.
const minTriangleArea = 1e-12

// Triangle is three distinct indices into a keypoint list.
type Triangle [3]int

// Topology is an immutable mesh description. All accessors return copies, so
// a Topology can be shared between goroutines without locking.
type Topology struct {
	uv        []geometry.Point2D
	triangles []Triangle
	contours  map[string][]int
}

// New builds a topology from the given tables and validates it. The tables
// are copied.
func New(uv []geometry.Point2D, triangles []Triangle, contours map[string][]int) (*Topology, error) {
	t := &Topology{
		uv:        append([]geometry.Point2D(nil), uv...),
		triangles: append([]Triangle(nil), triangles...),
		contours:  copyContours(contours),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Len returns N, the number of landmark indices.
func (t *Topology) Len() int {
	return len(t.uv)
}

// NumTriangles returns the size of the triangle set.
func (t *Topology) NumTriangles() int {
	return len(t.triangles)
}

// Triangle returns the i-th triangle in triangle set order.
func (t *Topology) Triangle(i int) Triangle {
	return t.triangles[i]
}

// UV returns the canonical UV table.
func (t *Topology) UV() []geometry.Point2D {
	return append([]geometry.Point2D(nil), t.uv...)
}

// Triangles returns the triangle set in its fixed order.
func (t *Topology) Triangles() []Triangle {
	return append([]Triangle(nil), t.triangles...)
}

// Contours returns the named contour table.
func (t *Topology) Contours() map[string][]int {
	return copyContours(t.contours)
}

// ContourNames returns the contour labels in sorted order.
func (t *Topology) ContourNames() []string {
	names := make([]string, 0, len(t.contours))
	for name := range t.contours {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Destination scales the UV table to a raster of the given size, producing
// the destination keypoints of an unwrap.
func (t *Topology) Destination(width, height int) []geometry.Point2D {
	out := make([]geometry.Point2D, len(t.uv))
	w, h := float64(width), float64(height)
	for i, p := range t.uv {
		out[i] = geometry.Point2D{X: p.X * w, Y: p.Y * h}
	}
	return out
}

// Validate checks that the tables are mutually consistent: indices in
// range and distinct per triangle, every landmark referenced by at least one
// triangle, no zero-area triangle, UV coordinates within [0,1] and contour
// indices in range.
func (t *Topology) Validate() error {
	n := len(t.uv)
	if n < 3 {
		return fmt.Errorf("%w: need at least 3 landmarks, have %d", ErrInvalidTopology, n)
	}
	if len(t.triangles) == 0 {
		return fmt.Errorf("%w: no triangles", ErrInvalidTopology)
	}

	unit := geometry.Rect{Width: 1, Height: 1}
	for i, p := range t.uv {
		if !p.IsFinite() || !unit.Contains(p) {
			return fmt.Errorf("%w: uv[%d] = (%g, %g) outside [0,1]", ErrInvalidTopology, i, p.X, p.Y)
		}
	}

	referenced := make([]bool, n)
	for ti, tri := range t.triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= n {
				return fmt.Errorf("%w: triangle %d index %d out of range [0,%d)", ErrInvalidTopology, ti, idx, n)
			}
			referenced[idx] = true
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			return fmt.Errorf("%w: triangle %d repeats an index %v", ErrInvalidTopology, ti, tri)
		}
		area := geometry.SignedArea(t.uv[tri[0]], t.uv[tri[1]], t.uv[tri[2]])
		if math.Abs(area) < minTriangleArea {
			return fmt.Errorf("%w: triangle %d %v is degenerate", ErrInvalidTopology, ti, tri)
		}
	}
	for i, ok := range referenced {
		if !ok {
			return fmt.Errorf("%w: landmark %d is not part of any triangle", ErrInvalidTopology, i)
		}
	}

	for name, indices := range t.contours {
		for _, idx := range indices {
			if idx < 0 || idx >= n {
				return fmt.Errorf("%w: contour %q index %d out of range", ErrInvalidTopology, name, idx)
			}
		}
	}
	return nil
}

// Area returns the total UV-space area covered by the triangles.
func (t *Topology) Area() float64 {
	var sum float64
	for _, tri := range t.triangles {
		sum += math.Abs(geometry.SignedArea(t.uv[tri[0]], t.uv[tri[1]], t.uv[tri[2]])) / 2
	}
	return sum
}

func copyContours(in map[string][]int) map[string][]int {
	out := make(map[string][]int, len(in))
	for name, indices := range in {
		out[name] = append([]int(nil), indices...)
	}
	return out
}
