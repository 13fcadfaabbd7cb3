// Package overlay draws face keypoints and contour polylines over an image.
package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"sort"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"facewarp/internal/topology"
	"facewarp/pkg/colorutil"
	"facewarp/pkg/geometry"
)

// Placement of the fallback message shown when no face was detected.
const (
	noFaceX        = 50
	noFaceY        = 50
	noFaceFontSize = 30
)

// Canvas is the drawing surface the overlay renders on. *gg.Context
// satisfies it.
type Canvas interface {
	SetColor(c color.Color)
	SetLineWidth(w float64)
	DrawCircle(x, y, r float64)
	Fill()
	NewSubPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke()
	SetFontFace(f font.Face)
	DrawString(s string, x, y float64)
}

// Options selects what is drawn and how.
type Options struct {
	Points       bool
	Contours     bool
	PointRadius  float64
	PointColor   color.Color
	ContourColor color.Color
	LineWidth    float64
	NoFaceText   string
	NoFaceColor  color.Color
}

// DefaultOptions draws both points and contours in the mesh color.
func DefaultOptions() Options {
	return Options{
		Points:       true,
		Contours:     true,
		PointRadius:  1,
		PointColor:   colorutil.Mesh,
		ContourColor: colorutil.Mesh,
		LineWidth:    1,
		NoFaceText:   "No face detected",
		NoFaceColor:  colorutil.Red,
	}
}

var (
	faceOnce sync.Once
	noFace   font.Face
)

// labelFace returns the face used for the fallback message, falling back
// to the fixed bitmap face if Go Regular cannot be loaded.
func labelFace() font.Face {
	faceOnce.Do(func() {
		noFace = basicfont.Face7x13
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			return
		}
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    noFaceFontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return
		}
		noFace = face
	})
	return noFace
}

// Draw paints the overlay for every face. An empty keypoint list draws
// nothing; zero faces draws the fallback message instead.
func Draw(c Canvas, faces [][]geometry.Point2D, contours map[string][]int, opts Options) {
	if len(faces) == 0 {
		if opts.NoFaceText == "" {
			return
		}
		c.SetColor(opts.NoFaceColor)
		c.SetFontFace(labelFace())
		c.DrawString(opts.NoFaceText, noFaceX, noFaceY)
		return
	}

	names := make([]string, 0, len(contours))
	for name := range contours {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, kps := range faces {
		if len(kps) == 0 {
			continue
		}
		if opts.Points {
			drawPoints(c, kps, opts)
		}
		if opts.Contours {
			for _, name := range names {
				drawPolyline(c, kps, contours[name], opts)
			}
		}
	}
}

func drawPoints(c Canvas, kps []geometry.Point2D, opts Options) {
	c.SetColor(opts.PointColor)
	for _, p := range kps {
		c.DrawCircle(p.X, p.Y, opts.PointRadius)
	}
	c.Fill()
}

// drawPolyline strokes the points at indices in order, skipping indices
// outside kps.
func drawPolyline(c Canvas, kps []geometry.Point2D, indices []int, opts Options) {
	pts := make([]geometry.Point2D, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(kps) {
			pts = append(pts, kps[idx])
		}
	}
	if len(pts) < 2 {
		return
	}
	c.SetColor(opts.ContourColor)
	c.SetLineWidth(opts.LineWidth)
	c.NewSubPath()
	c.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		c.LineTo(p.X, p.Y)
	}
	c.Stroke()
}

// DrawTriangles strokes every triangle edge of the mesh.
func DrawTriangles(c Canvas, kps []geometry.Point2D, tris []topology.Triangle, col color.Color, width float64) {
	c.SetColor(col)
	c.SetLineWidth(width)
	for _, t := range tris {
		if t[0] >= len(kps) || t[1] >= len(kps) || t[2] >= len(kps) {
			continue
		}
		a, b, d := kps[t[0]], kps[t[1]], kps[t[2]]
		c.NewSubPath()
		c.MoveTo(a.X, a.Y)
		c.LineTo(b.X, b.Y)
		c.LineTo(d.X, d.Y)
		c.LineTo(a.X, a.Y)
	}
	c.Stroke()
}

// Render copies img into a new raster anchored at the origin and draws
// the overlay on top.
func Render(img image.Image, faces [][]geometry.Point2D, contours map[string][]int, opts Options) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	Draw(gg.NewContextForRGBA(dst), faces, contours, opts)
	return dst
}

// Mesh renders topo laid out over a width x height background, as shown
// in place of a texture before one has been generated.
func Mesh(topo *topology.Topology, width, height int, bg color.Color, opts Options, triangles bool) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	dc := gg.NewContextForRGBA(dst)
	kps := topo.Destination(width, height)
	if triangles {
		DrawTriangles(dc, kps, topo.Triangles(), opts.ContourColor, opts.LineWidth/2)
	}
	Draw(dc, [][]geometry.Point2D{kps}, topo.Contours(), opts)
	return dst
}
