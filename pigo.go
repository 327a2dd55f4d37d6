package extractfaces

import (
	_ "embed"
	"errors"
	"fmt"
	"image"
	"os"
	"sort"

	pigo "github.com/esimov/pigo/core"
	"github.com/imgtools/extractfaces/utils"
)

const (
	// pigoShiftFactor is the fraction of the window size the scan moves by.
	pigoShiftFactor = 0.1
	// pigoIoUThreshold is the overlap above which two raw windows are treated as the same face.
	pigoIoUThreshold = 0.2
	// pigoHeaderSize covers the skipped preamble, the tree depth and the tree count.
	pigoHeaderSize = 16
)

//go:embed data/facefinder
var facefinder []byte

// PigoDetector runs a pigo pixel-intensity-comparison cascade.
type PigoDetector struct {
	classifier *pigo.Pigo
	minScore   float32
}

var _ Detector = (*PigoDetector)(nil)

// NewPigoDetector reads and unpacks the cascade file found at path.
// An empty path selects the embedded frontal face cascade.
func NewPigoDetector(path string, minScore float64) (*PigoDetector, error) {
	cascadeFile := facefinder
	if path != "" {
		var err error
		if cascadeFile, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("could not read the cascade file: %w", err)
		}
	} else {
		path = "embedded facefinder"
	}

	classifier, err := unpackCascade(cascadeFile)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file %q: %w", path, err)
	}
	return &PigoDetector{classifier: classifier, minScore: float32(minScore)}, nil
}

// unpackCascade unpacks the binary cascade. This will return the number of
// cascade trees, the tree depth, the threshold and the prediction from tree's
// leaf nodes. The pigo unpacker indexes the packet without bound checks,
// so a truncated file is turned into an error here.
func unpackCascade(packet []byte) (classifier *pigo.Pigo, err error) {
	if len(packet) < pigoHeaderSize {
		return nil, errors.New("cascade file too short")
	}
	defer func() {
		if r := recover(); r != nil {
			classifier, err = nil, fmt.Errorf("malformed cascade: %v", r)
		}
	}()
	return pigo.NewPigo().Unpack(packet)
}

// Detect implements Detector. The cascade works on square windows, so the
// larger of the two minimum sides is used as the smallest window.
func (d *PigoDetector) Detect(gray *image.Gray, p DetectParams) ([]Box, error) {
	cols, rows := gray.Bounds().Dx(), gray.Bounds().Dy()
	if cols == 0 || rows == 0 {
		return nil, nil
	}

	imgParams := pigo.ImageParams{
		Pixels: gray.Pix,
		Rows:   rows,
		Cols:   cols,
		Dim:    gray.Stride,
	}

	// The pyramid is walked one scale at a time: pigo truncates every scale
	// step to an integer, so a factor close to 1 would never grow the window.
	var dets []pigo.Detection
	maxSize := utils.Min(cols, rows)
	for size := utils.Max(p.MinWidth, p.MinHeight); size <= maxSize; size = nextScale(size, p.ScaleFactor) {
		cParams := pigo.CascadeParams{
			MinSize:     size,
			MaxSize:     size,
			ShiftFactor: pigoShiftFactor,
			ScaleFactor: 2, // a single pass per call
			ImageParams: imgParams,
		}
		// Run the classifier over the obtained leaf nodes and return the detection results.
		// The result contains quadruplets representing the row, column, scale and detection score.
		dets = append(dets, d.classifier.RunCascade(cParams, 0.0)...)
	}
	dets = groupDetections(dets, pigoIoUThreshold, p.MinNeighbors, d.minScore)

	boxes := make([]Box, 0, len(dets))
	for _, det := range dets {
		b, ok := detectionToBox(det, cols, rows)
		if !ok || b.W < p.MinWidth || b.H < p.MinHeight {
			continue
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

// Close implements Detector. The unpacked cascade holds no external resources.
func (d *PigoDetector) Close() error {
	return nil
}

// nextScale returns the next window size of the pyramid, always at least one pixel larger.
func nextScale(size int, factor float64) int {
	return utils.Max(size+1, int(float64(size)*factor))
}

// groupDetections merges raw windows that overlap by more than iouThreshold.
// A group becomes a detection only when more than minNeighbors windows agree
// and their summed score reaches minScore. Groups are ordered by their strongest member.
func groupDetections(dets []pigo.Detection, iouThreshold float64, minNeighbors int, minScore float32) []pigo.Detection {
	sorted := append([]pigo.Detection(nil), dets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Q > sorted[j].Q
	})

	assigned := make([]bool, len(sorted))
	var groups []pigo.Detection

	for i := range sorted {
		if assigned[i] {
			continue
		}
		var (
			r, c, s, n int
			q          float32
		)
		for j := i; j < len(sorted); j++ {
			if assigned[j] || iou(sorted[i], sorted[j]) <= iouThreshold {
				continue
			}
			assigned[j] = true
			r += sorted[j].Row
			c += sorted[j].Col
			s += sorted[j].Scale
			q += sorted[j].Q
			n++
		}
		if n > minNeighbors && q >= minScore {
			groups = append(groups, pigo.Detection{Row: r / n, Col: c / n, Scale: s / n, Q: q})
		}
	}
	return groups
}

// iou returns the intersection over union of two square detection windows.
func iou(a, b pigo.Detection) float64 {
	r1, c1, s1 := float64(a.Row), float64(a.Col), float64(a.Scale)
	r2, c2, s2 := float64(b.Row), float64(b.Col), float64(b.Scale)

	overRow := utils.Max(0.0, utils.Min(r1+s1/2, r2+s2/2)-utils.Max(r1-s1/2, r2-s2/2))
	overCol := utils.Max(0.0, utils.Min(c1+s1/2, c2+s2/2)-utils.Max(c1-s1/2, c2-s2/2))

	union := s1*s1 + s2*s2 - overRow*overCol
	if union <= 0 {
		return 0
	}
	return overRow * overCol / union
}

// detectionToBox converts a centre/scale detection to a box clipped to the image.
func detectionToBox(det pigo.Detection, cols, rows int) (Box, bool) {
	half := det.Scale / 2
	r := image.Rect(det.Col-half, det.Row-half, det.Col-half+det.Scale, det.Row-half+det.Scale)
	r = r.Intersect(image.Rect(0, 0, cols, rows))
	if r.Empty() {
		return Box{}, false
	}
	return Box{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}, true
}
