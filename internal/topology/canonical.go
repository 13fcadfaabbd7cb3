package topology

import (
	"fmt"
	"math"
	"sync"

	"github.com/fogleman/delaunay"

	"facewarp/pkg/geometry"
)

// Contour labels of the canonical layout. Left and right follow the
// subject's point of view, so the left eye appears on the right of a
// frontal photograph.
const (
	ContourFaceOval     = "faceOval"
	ContourRightEye     = "rightEye"
	ContourLeftEye      = "leftEye"
	ContourRightEyebrow = "rightEyebrow"
	ContourLeftEyebrow  = "leftEyebrow"
	ContourNoseBridge   = "noseBridge"
	ContourNoseBottom   = "noseBottom"
	ContourLips         = "lips"
	ContourLipsInner    = "lipsInner"
)

// Canonical layout parameters, all in UV units.
const (
	ovalPoints    = 36
	eyePoints     = 16
	eyebrowPoints = 10
	nosePoints    = 7
	lipPoints     = 20

	// Fill lattice spacing and how close a fill point may get to a
	// feature point.
	fillSpacing = 0.04
	fillMargin  = 0.024
	// Fill points stay inside this fraction of the face oval.
	fillOvalScale = 0.9
)

var (
	ovalCenter = geometry.Point2D{X: 0.5, Y: 0.5}
	ovalRadius = geometry.Point2D{X: 0.44, Y: 0.47}

	rightEyeCenter = geometry.Point2D{X: 0.34, Y: 0.42}
	leftEyeCenter  = geometry.Point2D{X: 0.66, Y: 0.42}
	eyeRadius      = geometry.Point2D{X: 0.075, Y: 0.032}

	rightBrowCenter = geometry.Point2D{X: 0.33, Y: 0.33}
	leftBrowCenter  = geometry.Point2D{X: 0.67, Y: 0.33}

	lipsCenter      = geometry.Point2D{X: 0.5, Y: 0.77}
	lipsOuterRadius = geometry.Point2D{X: 0.13, Y: 0.055}
	lipsInnerRadius = geometry.Point2D{X: 0.095, Y: 0.018}
)

var (
	canonicalOnce sync.Once
	canonical     *Topology
)

// Canonical returns the built-in face topology. It is generated on first use
// and shared read-only afterwards.
func Canonical() *Topology {
	canonicalOnce.Do(func() {
		t, err := buildCanonical()
		if err != nil {
			panic(fmt.Sprintf("topology: canonical layout is inconsistent: %v", err))
		}
		canonical = t
	})
	return canonical
}

// layout accumulates landmarks and their contour membership.
type layout struct {
	points   []geometry.Point2D
	contours map[string][]int
}

// add appends pts as a new contour. Closed contours repeat their first index
// at the end so they draw as a loop.
func (l *layout) add(name string, pts []geometry.Point2D, closed bool) {
	start := len(l.points)
	l.points = append(l.points, pts...)
	indices := make([]int, 0, len(pts)+1)
	for i := range pts {
		indices = append(indices, start+i)
	}
	if closed {
		indices = append(indices, start)
	}
	l.contours[name] = indices
}

func buildCanonical() (*Topology, error) {
	l := &layout{contours: make(map[string][]int)}

	l.add(ContourFaceOval, geometry.GenerateEllipsePoints(ovalCenter, ovalRadius.X, ovalRadius.Y, ovalPoints, -math.Pi/2), true)
	l.add(ContourRightEye, geometry.GenerateEllipsePoints(rightEyeCenter, eyeRadius.X, eyeRadius.Y, eyePoints, math.Pi), true)
	l.add(ContourLeftEye, geometry.GenerateEllipsePoints(leftEyeCenter, eyeRadius.X, eyeRadius.Y, eyePoints, 0), true)
	l.add(ContourRightEyebrow, eyebrow(rightBrowCenter), true)
	l.add(ContourLeftEyebrow, eyebrow(leftBrowCenter), true)
	l.add(ContourNoseBridge, noseBridge(), false)
	l.add(ContourNoseBottom, noseBottom(), false)
	l.add(ContourLips, geometry.GenerateEllipsePoints(lipsCenter, lipsOuterRadius.X, lipsOuterRadius.Y, lipPoints, math.Pi), true)
	l.add(ContourLipsInner, geometry.GenerateEllipsePoints(lipsCenter, lipsInnerRadius.X, lipsInnerRadius.Y, lipPoints, math.Pi), true)

	l.points = append(l.points, fill(l)...)

	triangles, err := triangulate(l.points)
	if err != nil {
		return nil, err
	}
	return New(l.points, triangles, l.contours)
}

// eyebrow is an upper arc traced left to right followed by a lower arc
// traced back.
func eyebrow(c geometry.Point2D) []geometry.Point2D {
	const half = eyebrowPoints / 2
	pts := make([]geometry.Point2D, 0, eyebrowPoints)
	for i := 0; i < half; i++ {
		t := float64(i) / float64(half-1)
		pts = append(pts, geometry.Point2D{X: c.X - 0.09 + 0.18*t, Y: c.Y - 0.005 - 0.03*math.Sin(math.Pi*t)})
	}
	for i := half - 1; i >= 0; i-- {
		t := float64(i) / float64(half-1)
		pts = append(pts, geometry.Point2D{X: c.X - 0.09 + 0.18*t, Y: c.Y + 0.015 - 0.02*math.Sin(math.Pi*t)})
	}
	return pts
}

func noseBridge() []geometry.Point2D {
	pts := make([]geometry.Point2D, nosePoints)
	for i := range pts {
		t := float64(i) / float64(nosePoints-1)
		pts[i] = geometry.Point2D{X: 0.5, Y: 0.40 + 0.20*t}
	}
	return pts
}

func noseBottom() []geometry.Point2D {
	pts := make([]geometry.Point2D, nosePoints)
	for i := range pts {
		t := float64(i) / float64(nosePoints-1)
		pts[i] = geometry.Point2D{X: 0.43 + 0.14*t, Y: 0.635 + 0.025*math.Sin(math.Pi*t)}
	}
	return pts
}

// fill places a hexagonal lattice inside the face oval, skipping the eye
// and mouth openings and anything too close to a feature landmark.
func fill(l *layout) []geometry.Point2D {
	var holes [][]geometry.Point2D
	for _, name := range []string{ContourRightEye, ContourLeftEye, ContourLips, ContourRightEyebrow, ContourLeftEyebrow} {
		holes = append(holes, l.polygon(name))
	}

	rowStep := fillSpacing * math.Sqrt(3) / 2
	rows := int(ovalRadius.Y/rowStep) + 1
	cols := int(ovalRadius.X/fillSpacing) + 1

	var out []geometry.Point2D
	for k := -rows; k <= rows; k++ {
		y := ovalCenter.Y + float64(k)*rowStep
		offset := 0.0
		if k%2 != 0 {
			offset = 0.5
		}
		for j := -cols; j <= cols; j++ {
			p := geometry.Point2D{X: ovalCenter.X + (float64(j)+offset)*fillSpacing, Y: y}
			if !insideEllipse(p, ovalCenter, ovalRadius.Scale(fillOvalScale)) {
				continue
			}
			if insideEllipse(p, rightEyeCenter, eyeRadius.Scale(1.25)) ||
				insideEllipse(p, leftEyeCenter, eyeRadius.Scale(1.25)) ||
				insideEllipse(p, lipsCenter, lipsOuterRadius.Scale(1.1)) {
				continue
			}
			if inAny(p, holes) || tooClose(p, l.points, fillMargin) {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

func (l *layout) polygon(name string) []geometry.Point2D {
	indices := l.contours[name]
	pts := make([]geometry.Point2D, 0, len(indices))
	for _, idx := range indices {
		pts = append(pts, l.points[idx])
	}
	return pts
}

func insideEllipse(p, c, r geometry.Point2D) bool {
	dx := (p.X - c.X) / r.X
	dy := (p.Y - c.Y) / r.Y
	return dx*dx+dy*dy < 1
}

func inAny(p geometry.Point2D, polygons [][]geometry.Point2D) bool {
	for _, poly := range polygons {
		if geometry.PointInPolygon(p, poly) {
			return true
		}
	}
	return false
}

func tooClose(p geometry.Point2D, pts []geometry.Point2D, margin float64) bool {
	for _, q := range pts {
		if p.Distance(q) < margin {
			return true
		}
	}
	return false
}

// triangulate runs a Delaunay triangulation over the layout and drops any
// zero-area triangle it reports.
func triangulate(points []geometry.Point2D) ([]Triangle, error) {
	pts := make([]delaunay.Point, len(points))
	for i, p := range points {
		pts[i] = delaunay.Point{X: p.X, Y: p.Y}
	}
	tri, err := delaunay.Triangulate(pts)
	if err != nil {
		return nil, fmt.Errorf("triangulate canonical layout: %w", err)
	}

	out := make([]Triangle, 0, len(tri.Triangles)/3)
	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		t := Triangle{tri.Triangles[i], tri.Triangles[i+1], tri.Triangles[i+2]}
		if math.Abs(geometry.SignedArea(points[t[0]], points[t[1]], points[t[2]])) < minTriangleArea {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
