package main

import (
	"bytes"
	"context"
	goimage "image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/logrusorgru/aurora"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"facewarp/internal/app"
	"facewarp/internal/config"
	"facewarp/internal/image"
	"facewarp/internal/landmark"
	"facewarp/internal/topology"
)

func TestOutputPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "portrait_uv.png"), texturePath("/photos/portrait.JPG", "out"))
	assert.Equal(t, filepath.Join("out", "a.b_uv.png"), texturePath("a.b.jpeg", "out"))
	assert.Equal(t, "out/face_mesh.png", overlayPath("out/face.png"))
	assert.Equal(t, "out/face_mesh.jpg", overlayPath("out/face.jpg"))
	assert.Equal(t, "face_mesh.png", overlayPath("face"))
}

func TestIsValidExtension(t *testing.T) {
	assert.True(t, isValidExtension(".png", validExtensions))
	assert.True(t, isValidExtension(".JPG", validExtensions))
	assert.False(t, isValidExtension(".txt", validExtensions))
	assert.False(t, isValidExtension("", validExtensions))
}

func TestWalkDirFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	for _, name := range []string{"a.png", "b.txt", "nested/c.jpg", "nested/d"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	done := make(chan struct{})
	defer close(done)
	paths, errc := walkDir(done, dir, validExtensions)

	var got []string
	for p := range paths {
		rel, err := filepath.Rel(dir, p)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
	}
	require.NoError(t, <-errc)
	sort.Strings(got)
	assert.Equal(t, []string{"a.png", "nested/c.jpg"}, got)
}

func TestWalkDirMissingRoot(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	paths, errc := walkDir(done, filepath.Join(t.TempDir(), "missing"), validExtensions)
	for range paths {
	}
	assert.Error(t, <-errc)
}

func TestPrintStatus(t *testing.T) {
	plain := aurora.NewAurora(false)

	var buf bytes.Buffer
	printStatusTo(&buf, plain, result{path: "in.png", out: "out/in_uv.png"})
	assert.Equal(t, "✔ in.png -> in_uv.png\n", buf.String())

	buf.Reset()
	printStatusTo(&buf, plain, result{path: "in.png", err: app.ErrNoFace})
	assert.Equal(t, "✘ in.png\n\tno face detected\n", buf.String())
}

func testBatch(t *testing.T, faces bool) (*batch, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Texture.Width = 32
	cfg.Texture.Height = 32
	cfg.Warp.Workers = 1

	topo := topology.Canonical()
	det := landmark.DetectorFunc(func(ctx context.Context, img goimage.Image) (landmark.Result, error) {
		if !faces {
			return landmark.Result{}, nil
		}
		b := img.Bounds()
		return landmark.Result{Faces: []landmark.Face{{Keypoints: topo.Destination(b.Dx(), b.Dy())}}}, nil
	})

	dir := t.TempDir()
	src := goimage.NewRGBA(goimage.Rect(0, 0, 48, 48))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	src.SetRGBA(0, 0, color.RGBA{A: 255})
	require.NoError(t, image.Save(src, filepath.Join(dir, "face.png")))

	return &batch{cfg: cfg, topo: topo, detector: det, overlay: true, log: zap.NewNop()}, dir
}

func TestProcessWritesTextureAndOverlay(t *testing.T) {
	b, dir := testBatch(t, true)
	out := texturePath(filepath.Join(dir, "face.png"), dir)

	require.NoError(t, b.process(b.session(), filepath.Join(dir, "face.png"), out))

	tex, err := image.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 32, tex.Width())
	assert.Equal(t, 32, tex.Height())

	mesh, err := image.Load(overlayPath(out))
	require.NoError(t, err)
	assert.Equal(t, 48, mesh.Width())
}

func TestProcessReportsMissingFace(t *testing.T) {
	b, dir := testBatch(t, false)
	out := filepath.Join(dir, "none_uv.png")

	err := b.process(b.session(), filepath.Join(dir, "face.png"), out)
	assert.ErrorIs(t, err, app.ErrNoFace)
	assert.NoFileExists(t, out)
}

func TestConsumeReportsEveryPath(t *testing.T) {
	b, dir := testBatch(t, true)
	b.overlay = false
	outDir := t.TempDir()

	done := make(chan struct{})
	defer close(done)
	paths := make(chan string, 2)
	paths <- filepath.Join(dir, "face.png")
	paths <- filepath.Join(dir, "missing.png")
	close(paths)

	res := make(chan result, 2)
	b.consume(done, paths, outDir, res)
	close(res)

	var ok, failed int
	for r := range res {
		if r.err != nil {
			failed++
		} else {
			ok++
			assert.FileExists(t, r.out)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
}
