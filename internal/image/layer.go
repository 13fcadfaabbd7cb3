// Package image provides image loading, saving and view compositing.
package image

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"facewarp/pkg/geometry"
)

// Layer is a raster displayed on a view, with its display settings.
type Layer struct {
	Path    string      // Original file path, empty for generated rasters
	Image   image.Image // Loaded image data
	Visible bool        // Layer visibility
	Opacity float64     // Layer opacity (0.0 - 1.0)
}

// NewLayer creates a visible, opaque layer for img.
func NewLayer(img image.Image) *Layer {
	return &Layer{
		Image:   img,
		Visible: true,
		Opacity: 1.0,
	}
}

// Load decodes the image at path, applying any EXIF orientation, and
// returns it as a Layer.
func Load(path string) (*Layer, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}

	layer := NewLayer(img)
	layer.Path = path
	return layer, nil
}

// Decode reads an image from r, applying any EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

// Size returns the image dimensions.
func (l *Layer) Size() geometry.Size {
	return geometry.Size{
		Width:  float64(l.Width()),
		Height: float64(l.Height()),
	}
}

// Name returns the file name of the layer, or "untitled".
func (l *Layer) Name() string {
	if l.Path == "" {
		return "untitled"
	}
	return filepath.Base(l.Path)
}

// PixelAt returns the color at the specified pixel coordinates.
func (l *Layer) PixelAt(x, y int) color.Color {
	if l.Image == nil {
		return color.Transparent
	}
	bounds := l.Image.Bounds()
	p := image.Point{X: bounds.Min.X + x, Y: bounds.Min.Y + y}
	if !p.In(bounds) {
		return color.Transparent
	}
	return l.Image.At(p.X, p.Y)
}

// Save encodes img to path, choosing the format from the extension. PNG is
// used when the extension is missing.
func Save(img image.Image, path string) error {
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Encode writes img to w in the named format ("png", "jpeg", ...).
func Encode(w io.Writer, img image.Image, format string) error {
	f, err := imaging.FormatFromExtension(strings.TrimPrefix(format, "."))
	if err != nil {
		return err
	}
	return imaging.Encode(w, img, f, imaging.JPEGQuality(95))
}

// Downscale shrinks img so that neither side exceeds maxDim, preserving the
// aspect ratio. It returns the factor mapping coordinates of the result
// back to img (1 when img is returned unchanged).
func Downscale(img image.Image, maxDim int) (image.Image, float64) {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img, 1
	}
	small := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	return small, float64(b.Dx()) / float64(small.Bounds().Dx())
}
