package landmark

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"facewarp/pkg/geometry"
)

// The JSON exchange format follows the face landmark detection models of
// TensorFlow.js, either a bare array of faces or an object:
//
//	{
//	  "width": 640, "height": 480,
//	  "faces": [{"keypoints": [{"x": 1, "y": 2, "z": 0}], "box": {...}, "score": 0.9}],
//	  "contours": {"faceOval": [10, 338, ...]}
//	}
//
// width and height, when present, give the image size the keypoints refer
// to; keypoints are rescaled when the detected image has another size. A
// non-empty "error" field is reported as a failure.

type keypointJSON struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z,omitempty"`
	Name string  `json:"name,omitempty"`
}

type boxJSON struct {
	XMin   float64 `json:"xMin"`
	YMin   float64 `json:"yMin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type faceJSON struct {
	Keypoints []keypointJSON `json:"keypoints"`
	Box       *boxJSON       `json:"box,omitempty"`
	Score     float64        `json:"score,omitempty"`
}

type resultJSON struct {
	Error    string           `json:"error,omitempty"`
	Width    int              `json:"width,omitempty"`
	Height   int              `json:"height,omitempty"`
	Faces    []faceJSON       `json:"faces"`
	Contours map[string][]int `json:"contours,omitempty"`
}

// errDetector wraps failures reported inside the JSON document itself.
var errDetector = errors.New("detector reported an error")

// ReadJSON parses the exchange format. imgW and imgH are the size of
// the image the result is for; zero skips rescaling.
func ReadJSON(r io.Reader, imgW, imgH int) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, err
	}

	var doc resultJSON
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &doc.Faces)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return Result{}, fmt.Errorf("decode landmarks: %w", err)
	}
	if doc.Error != "" {
		return Result{}, fmt.Errorf("%w: %s", errDetector, doc.Error)
	}

	sx, sy := 1.0, 1.0
	if doc.Width > 0 && doc.Height > 0 && imgW > 0 && imgH > 0 {
		sx = float64(imgW) / float64(doc.Width)
		sy = float64(imgH) / float64(doc.Height)
	}

	res := Result{Contours: doc.Contours}
	for i, f := range doc.Faces {
		if len(f.Keypoints) == 0 {
			return Result{}, fmt.Errorf("decode landmarks: face %d has no keypoints", i)
		}
		face := Face{Score: f.Score, Keypoints: make([]geometry.Point2D, len(f.Keypoints))}
		for j, kp := range f.Keypoints {
			face.Keypoints[j] = geometry.Point2D{X: kp.X * sx, Y: kp.Y * sy}
		}
		if f.Box != nil {
			face.Box = geometry.Rect{X: f.Box.XMin * sx, Y: f.Box.YMin * sy, Width: f.Box.Width * sx, Height: f.Box.Height * sy}
		} else {
			face.Box = geometry.BoundingBox(face.Keypoints)
		}
		res.Faces = append(res.Faces, face)
	}
	return res, nil
}

// WriteJSON writes r in the exchange format.
func WriteJSON(w io.Writer, r Result, width, height int) error {
	doc := resultJSON{Width: width, Height: height, Contours: r.Contours, Faces: []faceJSON{}}
	for _, f := range r.Faces {
		fj := faceJSON{
			Score:     f.Score,
			Box:       &boxJSON{XMin: f.Box.X, YMin: f.Box.Y, Width: f.Box.Width, Height: f.Box.Height},
			Keypoints: make([]keypointJSON, len(f.Keypoints)),
		}
		for i, p := range f.Keypoints {
			fj.Keypoints[i] = keypointJSON{X: p.X, Y: p.Y}
		}
		doc.Faces = append(doc.Faces, fj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
