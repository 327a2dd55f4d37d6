package extractfaces

import (
	"fmt"
	"image"
	"sync"
)

// Box is an axis-aligned face bounding box in source pixel coordinates.
type Box struct {
	X, Y, W, H int
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// DetectParams holds the detector tuning knobs.
//
// ScaleFactor is the image pyramid step between two detection passes,
// MinNeighbors the number of overlapping candidate windows needed to accept
// a detection, and MinWidth/MinHeight the smallest window considered.
type DetectParams struct {
	ScaleFactor  float64
	MinNeighbors int
	MinWidth     int
	MinHeight    int
}

// MinSize returns the minimum window as a (width, height) point.
func (p DetectParams) MinSize() image.Point {
	return image.Pt(p.MinWidth, p.MinHeight)
}

// Detector finds faces in a grayscale image. An empty result is not an error.
type Detector interface {
	Detect(gray *image.Gray, p DetectParams) ([]Box, error)
	Close() error
}

// NewDetector loads the cascade for the configured backend.
func NewDetector(cfg Config) (Detector, error) {
	switch cfg.Backend {
	case BackendPigo, "":
		det, err := NewPigoDetector(cfg.Cascade, cfg.MinScore)
		if err != nil {
			return nil, err
		}
		return det, nil
	case BackendHaar:
		return NewHaarDetector(cfg.Cascade)
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}
}

// lockedDetector runs one detection at a time on a detector that is not safe
// for concurrent use.
type lockedDetector struct {
	mu  sync.Mutex
	det Detector
}

// Serialize wraps det so that concurrent Detect calls run one after the other.
func Serialize(det Detector) Detector {
	return &lockedDetector{det: det}
}

func (d *lockedDetector) Detect(gray *image.Gray, p DetectParams) ([]Box, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.det.Detect(gray, p)
}

func (d *lockedDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.det.Close()
}
