package topology

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facewarp/pkg/geometry"
)

func unitSquare() ([]geometry.Point2D, []Triangle) {
	uv := []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	return uv, []Triangle{{0, 1, 2}, {0, 2, 3}}
}

func TestCanonicalIsConsistent(t *testing.T) {
	topo := Canonical()
	require.NoError(t, topo.Validate())
	assert.Same(t, topo, Canonical(), "built once")
	assert.Greater(t, topo.Len(), 200)
	assert.Greater(t, topo.NumTriangles(), topo.Len())
}

func TestCanonicalTrianglesPartitionTheHull(t *testing.T) {
	topo := Canonical()
	hull := geometry.ConvexHull(topo.UV())
	assert.InDelta(t, geometry.PolygonArea(hull), topo.Area(), 1e-9,
		"triangles must cover the hull exactly once")
}

func TestCanonicalContours(t *testing.T) {
	topo := Canonical()
	contours := topo.Contours()
	for _, name := range []string{
		ContourFaceOval, ContourLeftEye, ContourRightEye, ContourLeftEyebrow,
		ContourRightEyebrow, ContourLips, ContourLipsInner, ContourNoseBridge, ContourNoseBottom,
	} {
		require.Contains(t, contours, name)
	}
	oval := contours[ContourFaceOval]
	assert.Equal(t, oval[0], oval[len(oval)-1], "closed contour repeats its first index")
	assert.Len(t, oval, ovalPoints+1)

	uv := topo.UV()
	assert.Less(t, uv[contours[ContourRightEye][0]].X, 0.5, "right eye is on the image left")
	assert.Greater(t, uv[contours[ContourLeftEye][0]].X, 0.5)
	assert.IsIncreasing(t, topo.ContourNames())
}

func TestAccessorsReturnCopies(t *testing.T) {
	topo := Canonical()
	tris := topo.Triangles()
	tris[0] = Triangle{-1, -1, -1}
	uv := topo.UV()
	uv[0] = geometry.Point2D{X: 9, Y: 9}
	contours := topo.Contours()
	contours[ContourFaceOval][0] = -1

	assert.NotEqual(t, Triangle{-1, -1, -1}, topo.Triangle(0))
	assert.NotEqual(t, geometry.Point2D{X: 9, Y: 9}, topo.UV()[0])
	assert.NotEqual(t, -1, topo.Contours()[ContourFaceOval][0])
	require.NoError(t, topo.Validate())
}

func TestDestination(t *testing.T) {
	uv, tris := unitSquare()
	topo, err := New(uv, tris, nil)
	require.NoError(t, err)

	dst := topo.Destination(1024, 512)
	assert.Equal(t, []geometry.Point2D{{X: 0, Y: 0}, {X: 1024, Y: 0}, {X: 1024, Y: 512}, {X: 0, Y: 512}}, dst)
}

func TestValidateRejects(t *testing.T) {
	uv, tris := unitSquare()
	tests := []struct {
		name     string
		uv       []geometry.Point2D
		tris     []Triangle
		contours map[string][]int
		want     string
	}{
		{"index out of range", uv, []Triangle{{0, 1, 2}, {0, 2, 4}}, nil, "out of range"},
		{"negative index", uv, []Triangle{{0, 1, 2}, {0, 2, -1}}, nil, "out of range"},
		{"repeated index", uv, []Triangle{{0, 1, 2}, {0, 3, 3}}, nil, "repeats"},
		{"unreferenced landmark", uv, []Triangle{{0, 1, 2}}, nil, "landmark 3"},
		{"degenerate triangle", []geometry.Point2D{{X: 0, Y: 0}, {X: 0.5, Y: 0.5}, {X: 1, Y: 1}}, []Triangle{{0, 1, 2}}, nil, "degenerate"},
		{"uv outside unit square", []geometry.Point2D{{X: 0, Y: 0}, {X: 1.5, Y: 0}, {X: 0, Y: 1}}, []Triangle{{0, 1, 2}}, nil, "outside"},
		{"contour out of range", uv, tris, map[string][]int{"oval": {0, 7}}, "contour"},
		{"no triangles", uv, nil, nil, "no triangles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.uv, tt.tris, tt.contours)
			require.ErrorIs(t, err, ErrInvalidTopology)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	topo := Canonical()
	var buf bytes.Buffer
	require.NoError(t, topo.WriteYAML(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, topo.UV(), loaded.UV())
	assert.Equal(t, topo.Triangles(), loaded.Triangles())
	assert.Equal(t, topo.Contours(), loaded.Contours())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "square.yaml")
	doc := `uv:
  - [0, 0]
  - [1, 0]
  - [1, 1]
  - [0, 1]
triangles:
  - [0, 1, 2]
  - [0, 2, 3]
contours:
  outline: [0, 1, 2, 3, 0]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	topo, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, topo.Len())
	assert.Equal(t, []string{"outline"}, topo.ContourNames())

	resolved, err := Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, topo.UV(), resolved.UV())

	canonical, err := Resolve("")
	require.NoError(t, err)
	assert.Same(t, Canonical(), canonical)
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"three component uv", "uv: [[0, 0, 0]]\ntriangles: []\n"},
		{"two index triangle", "uv: [[0, 0], [1, 0], [0, 1]]\ntriangles: [[0, 1]]\n"},
		{"unknown field", "uv: [[0, 0], [1, 0], [0, 1]]\ntriangles: [[0, 1, 2]]\nnormals: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}
