package warp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCorrespondence is matched by every precondition failure of
	// Warp: mismatched keypoint lists, a list whose length differs from the
	// topology, a non-positive destination size or a non-finite keypoint.
	ErrInvalidCorrespondence = errors.New("invalid keypoint correspondence")

	// ErrEmptySource is returned when the source image is nil or has no
	// pixels.
	ErrEmptySource = errors.New("empty source image")
)

// CorrespondenceError describes a rejected Warp call.
type CorrespondenceError struct {
	Source      int // number of source keypoints
	Destination int // number of destination keypoints
	Expected    int // landmark count of the topology
	Width       int
	Height      int
	Reason      string
}

func (e *CorrespondenceError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidCorrespondence, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidCorrespondence) hold.
func (e *CorrespondenceError) Is(target error) bool {
	return target == ErrInvalidCorrespondence
}
