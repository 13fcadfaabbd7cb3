// Package landmark defines the face landmark detector collaborator and its
// backends. A detector turns a raster into per-face keypoint lists whose
// order matches a topology.
package landmark

import (
	"context"
	"image"

	"facewarp/pkg/geometry"
)

// Face is one detected face. Keypoints and Box are in pixels relative to
// the bounds origin of the detected image.
type Face struct {
	Keypoints []geometry.Point2D
	Box       geometry.Rect
	Score     float64
}

// Result is the outcome of one detection. Zero faces is a valid result,
// not an error.
type Result struct {
	Faces    []Face
	Contours map[string][]int
}

// Empty reports whether no face was detected.
func (r Result) Empty() bool {
	return len(r.Faces) == 0
}

// Primary returns the first detected face.
func (r Result) Primary() (Face, bool) {
	if r.Empty() {
		return Face{}, false
	}
	return r.Faces[0], true
}

// Keypoints returns the keypoint list of every face, in detection order.
func (r Result) Keypoints() [][]geometry.Point2D {
	out := make([][]geometry.Point2D, len(r.Faces))
	for i, f := range r.Faces {
		out[i] = f.Keypoints
	}
	return out
}

// WithContours returns r with contours filled in when the detector did not
// report any.
func (r Result) WithContours(contours map[string][]int) Result {
	if len(r.Contours) == 0 {
		r.Contours = contours
	}
	return r
}

// Detector locates face landmarks in an image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) (Result, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, img image.Image) (Result, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, img image.Image) (Result, error) {
	return f(ctx, img)
}

// Outcome carries the result of an asynchronous detection.
type Outcome struct {
	Result Result
	Err    error
}

// Request runs one detection in the background. The returned channel
// delivers exactly one Outcome and is buffered, so a caller that loses
// interest may simply stop listening.
func Request(ctx context.Context, d Detector, img image.Image) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		res, err := d.Detect(ctx, img)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}
