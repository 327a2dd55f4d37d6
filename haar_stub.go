//go:build !gocv

package extractfaces

import (
	"errors"
	"fmt"
)

// ErrHaarUnavailable is returned when the Haar cascade backend cannot be used.
var ErrHaarUnavailable = errors.New("haar cascade backend unavailable")

// NewHaarDetector always fails: the binary was built without OpenCV support.
// Rebuild with -tags gocv to enable the backend.
func NewHaarDetector(path string) (Detector, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags gocv to load %q", ErrHaarUnavailable, path)
}
