package image

import (
	"bytes"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facewarp/pkg/geometry"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

func quad() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, red)
	img.SetRGBA(1, 0, green)
	img.SetRGBA(0, 1, blue)
	img.SetRGBA(1, 1, white)
	return img
}

func TestSaveLoadPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texture")
	require.NoError(t, Save(quad(), path))

	layer, err := Load(path + ".png")
	require.NoError(t, err)
	assert.Equal(t, 2, layer.Width())
	assert.Equal(t, 2, layer.Height())
	assert.Equal(t, "texture.png", layer.Name())
	assert.True(t, layer.Visible)

	r, g, b, a := layer.PixelAt(1, 0).RGBA()
	assert.Equal(t, [4]uint32{0, 0xffff, 0, 0xffff}, [4]uint32{r, g, b, a})
	assert.Equal(t, color.Transparent, layer.PixelAt(5, 5))
}

func TestSaveRejectsUnknownExtension(t *testing.T) {
	err := Save(quad(), filepath.Join(t.TempDir(), "out.xyz"))
	assert.Error(t, err)
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, quad(), "png"))
	img, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())

	assert.Error(t, Encode(&buf, quad(), "doc"))
}

func TestDownscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	small, factor := Downscale(img, 100)
	assert.Equal(t, 100, small.Bounds().Dx())
	assert.Equal(t, 50, small.Bounds().Dy())
	assert.InDelta(t, 4, factor, 1e-12)

	same, factor := Downscale(img, 0)
	assert.Same(t, img, same)
	assert.Equal(t, 1.0, factor)
}

func TestRenderViewMagnifies(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	RenderView(dst, quad(), geometry.ScaleTranslate(2, 0, 0), 1)

	assert.Equal(t, red, dst.RGBAAt(0, 0))
	assert.Equal(t, red, dst.RGBAAt(1, 1))
	assert.Equal(t, green, dst.RGBAAt(3, 0))
	assert.Equal(t, blue, dst.RGBAAt(0, 3))
	assert.Equal(t, white, dst.RGBAAt(3, 3))
}

func TestCompositePanAndBackground(t *testing.T) {
	c := NewComposite(4, 4)
	c.View = geometry.ScaleTranslate(1, 1, 1)
	c.AddLayer(NewLayer(quad()))
	hidden := NewLayer(image.NewUniform(white))
	hidden.Visible = false
	c.AddLayer(hidden)

	out := c.Render()
	assert.Equal(t, black, out.RGBAAt(0, 0))
	assert.Equal(t, red, out.RGBAAt(1, 1))
	assert.Equal(t, white, out.RGBAAt(2, 2))
	assert.Equal(t, black, out.RGBAAt(3, 3))
}

func TestRenderViewHonoursSourceOrigin(t *testing.T) {
	sub := quad().SubImage(image.Rect(1, 1, 2, 2))
	dst := image.NewRGBA(image.Rect(0, 0, 2, 2))
	RenderView(dst, sub, geometry.ScaleTranslate(2, 0, 0), 1)
	assert.Equal(t, white, dst.RGBAAt(0, 0))
	assert.Equal(t, white, dst.RGBAAt(1, 1))
}
