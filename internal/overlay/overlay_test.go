package overlay

import (
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"

	"facewarp/internal/topology"
	"facewarp/pkg/colorutil"
	"facewarp/pkg/geometry"
)

// recorder logs every canvas call as a short string.
type recorder struct {
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) SetColor(c color.Color)            { r.add("color %s", colorutil.Hex(c)) }
func (r *recorder) SetLineWidth(w float64)            { r.add("width %g", w) }
func (r *recorder) DrawCircle(x, y, rad float64)      { r.add("circle %g,%g", x, y) }
func (r *recorder) Fill()                             { r.add("fill") }
func (r *recorder) NewSubPath()                       { r.add("subpath") }
func (r *recorder) MoveTo(x, y float64)               { r.add("move %g,%g", x, y) }
func (r *recorder) LineTo(x, y float64)               { r.add("line %g,%g", x, y) }
func (r *recorder) Stroke()                           { r.add("stroke") }
func (r *recorder) SetFontFace(f font.Face)           { r.add("font") }
func (r *recorder) DrawString(s string, x, y float64) { r.add("text %q %g,%g", s, x, y) }

func (r *recorder) count(prefix string) int {
	n := 0
	for _, c := range r.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

var square = []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}

func TestDrawNoFaces(t *testing.T) {
	r := &recorder{}
	Draw(r, nil, nil, DefaultOptions())
	assert.Equal(t, []string{"color #ff0000", "font", `text "No face detected" 50,50`}, r.calls)
}

func TestDrawEmptyKeypointList(t *testing.T) {
	r := &recorder{}
	Draw(r, [][]geometry.Point2D{{}}, map[string][]int{"a": {0, 1}}, DefaultOptions())
	assert.Empty(t, r.calls)
}

func TestDrawPointsOnly(t *testing.T) {
	r := &recorder{}
	opts := DefaultOptions()
	opts.Contours = false
	Draw(r, [][]geometry.Point2D{square}, map[string][]int{"a": {0, 1}}, opts)

	assert.Equal(t, 4, r.count("circle"))
	assert.Equal(t, 1, r.count("fill"))
	assert.Zero(t, r.count("stroke"))
	assert.Equal(t, "circle 10,10", r.calls[3])
}

func TestDrawContoursSortedAndClipped(t *testing.T) {
	r := &recorder{}
	opts := DefaultOptions()
	opts.Points = false
	contours := map[string][]int{
		"b": {0, 1, 99, 2},
		"a": {3, 0},
		"c": {7},
		"d": {-1, 2, 8},
	}
	Draw(r, [][]geometry.Point2D{square}, contours, opts)

	want := []string{
		"color #32eedb", "width 1", "subpath", "move 0,10", "line 0,0", "stroke",
		"color #32eedb", "width 1", "subpath", "move 0,0", "line 10,0", "line 10,10", "stroke",
	}
	assert.Equal(t, want, r.calls)
}

func TestDrawEveryFace(t *testing.T) {
	r := &recorder{}
	shifted := make([]geometry.Point2D, len(square))
	for i, p := range square {
		shifted[i] = p.Add(geometry.Point2D{X: 100})
	}
	opts := DefaultOptions()
	opts.Contours = false
	Draw(r, [][]geometry.Point2D{square, shifted}, nil, opts)
	assert.Equal(t, 8, r.count("circle"))
	assert.Contains(t, r.calls, "circle 110,10")
}

func TestDrawTrianglesSkipsBadIndices(t *testing.T) {
	r := &recorder{}
	DrawTriangles(r, square, []topology.Triangle{{0, 1, 2}, {0, 2, 9}}, colorutil.White, 0.5)
	assert.Equal(t, 1, r.count("subpath"))
	assert.Equal(t, 3, r.count("line"))
	assert.Equal(t, 1, r.count("stroke"))
}

func TestRenderDrawsOverImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(20, 20, 40, 40))
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}
	opts := DefaultOptions()
	opts.PointRadius = 2
	out := Render(src, [][]geometry.Point2D{{{X: 10, Y: 10}}}, nil, opts)

	require.Equal(t, image.Rect(0, 0, 20, 20), out.Bounds())
	assert.Equal(t, color.RGBA{A: 255}, out.RGBAAt(0, 0))
	assert.Greater(t, out.RGBAAt(10, 10).G, uint8(128))
}

func TestRenderNoFaceMessage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 300, 100))
	out := Render(src, nil, nil, DefaultOptions())

	red := 0
	for y := 0; y < 100; y++ {
		for x := 0; x < 300; x++ {
			if c := out.RGBAAt(x, y); c.R > 128 && c.G < 64 {
				red++
			}
		}
	}
	assert.Greater(t, red, 50)
}

func TestMesh(t *testing.T) {
	topo := topology.Canonical()
	out := Mesh(topo, 256, 256, colorutil.Black, DefaultOptions(), true)
	require.Equal(t, image.Rect(0, 0, 256, 256), out.Bounds())
	assert.Equal(t, colorutil.Black, out.RGBAAt(0, 0))

	lit := 0
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i+1] > 0 {
			lit++
		}
	}
	assert.Greater(t, lit, 1000)
}
