//go:build gocv

package extractfaces

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrHaarUnavailable is returned when the Haar cascade backend cannot be used.
var ErrHaarUnavailable = errors.New("haar cascade backend unavailable")

// HaarDetector wraps an OpenCV cascade classifier. OpenCV does not document
// the classifier as safe for concurrent use, so NewHaarDetector hands it out
// behind a lock.
type HaarDetector struct {
	classifier gocv.CascadeClassifier
}

var _ Detector = (*HaarDetector)(nil)

// NewHaarDetector loads the OpenCV cascade XML file found at path.
func NewHaarDetector(path string) (Detector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("%w: error loading the cascade file %q", ErrHaarUnavailable, path)
	}
	return Serialize(&HaarDetector{classifier: classifier}), nil
}

// Detect implements Detector.
func (d *HaarDetector) Detect(gray *image.Gray, p DetectParams) ([]Box, error) {
	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, fmt.Errorf("could not convert the image to a matrix: %w", err)
	}
	defer mat.Close()

	rects := d.classifier.DetectMultiScaleWithParams(
		mat, p.ScaleFactor, p.MinNeighbors, 0, p.MinSize(), image.Point{},
	)

	boxes := make([]Box, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()})
	}
	return boxes, nil
}

// Close releases the native classifier.
func (d *HaarDetector) Close() error {
	return d.classifier.Close()
}
