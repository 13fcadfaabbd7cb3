package landmark

import (
	"context"
	"fmt"
	"image"
	"os"
	"sort"

	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"
	"go.uber.org/zap"

	fwimage "facewarp/internal/image"
	"facewarp/internal/topology"
	"facewarp/pkg/geometry"
)

// Face box proportions relative to the square pigo detection window. The
// window covers the eyes to the mouth; the mesh extends above and below.
const (
	meshHeightRatio = 1.15
	meshTopRatio    = 0.62
)

// PigoParams tunes the cascade scan.
type PigoParams struct {
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoU          float64
	MinScore     float64
	MaxDimension int
}

// DefaultPigoParams returns the scan settings used for portraits.
func DefaultPigoParams() PigoParams {
	return PigoParams{
		MinSize:      100,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoU:          0.2,
		MinScore:     5,
		MaxDimension: 1024,
	}
}

// PigoDetector finds faces with a pigo cascade and places the topology's
// UV layout into each face box. The keypoints are a coarse approximation
// suitable for previews and tests, not a true landmark model.
type PigoDetector struct {
	classifier *pigo.Pigo
	topo       *topology.Topology
	params     PigoParams
	log        *zap.Logger
}

// NewPigoDetector unpacks the cascade at cascadePath.
func NewPigoDetector(cascadePath string, topo *topology.Topology, params PigoParams, log *zap.Logger) (*PigoDetector, error) {
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("read cascade: %w", err)
	}
	return NewPigoDetectorFromBytes(data, topo, params, log)
}

// NewPigoDetectorFromBytes unpacks an in-memory cascade.
func NewPigoDetectorFromBytes(cascade []byte, topo *topology.Topology, params PigoParams, log *zap.Logger) (*PigoDetector, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PigoDetector{classifier: classifier, topo: topo, params: params, log: log}, nil
}

// Detect scans img for faces, strongest first.
func (d *PigoDetector) Detect(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	small, factor := fwimage.Downscale(img, d.params.MaxDimension)
	// The grayscale conversion indexes from the origin.
	src := imaging.Clone(small)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	cp := pigo.CascadeParams{
		MinSize:     d.params.MinSize,
		MaxSize:     d.params.MaxSize,
		ShiftFactor: d.params.ShiftFactor,
		ScaleFactor: d.params.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(src),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}
	dets := d.classifier.RunCascade(cp, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.params.IoU)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	sort.SliceStable(dets, func(i, j int) bool { return dets[i].Q > dets[j].Q })

	var res Result
	for _, det := range dets {
		if float64(det.Q) < d.params.MinScore {
			continue
		}
		box := faceBox(det, factor)
		res.Faces = append(res.Faces, Face{
			Keypoints: d.place(box),
			Box:       box,
			Score:     float64(det.Q),
		})
	}

	d.log.Debug("pigo detection",
		zap.Int("candidates", len(dets)),
		zap.Int("faces", len(res.Faces)),
		zap.Float64("downscale", factor))
	return res.WithContours(d.topo.Contours()), nil
}

// faceBox scales a detection back to source pixels and stretches it to the
// mesh proportions. Like every keypoint, the box is relative to the image
// bounds origin, which is where the grayscale copy starts.
func faceBox(det pigo.Detection, factor float64) geometry.Rect {
	size := float64(det.Scale) * factor
	h := size * meshHeightRatio
	return geometry.Rect{
		X:      float64(det.Col)*factor - size/2,
		Y:      float64(det.Row)*factor - h*meshTopRatio,
		Width:  size,
		Height: h,
	}
}

// place maps the topology's unit UV square into box.
func (d *PigoDetector) place(box geometry.Rect) []geometry.Point2D {
	m := geometry.AffineTransform{A: box.Width, D: box.Height, TX: box.X, TY: box.Y}
	uv := d.topo.UV()
	for i, p := range uv {
		uv[i] = m.Apply(p)
	}
	return uv
}
