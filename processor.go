package extractfaces

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// Result describes what happened to one candidate file.
type Result struct {
	// Source is the path of the candidate file.
	Source string
	// Faces is the number of boxes the detector returned.
	Faces int
	// Written and Failed count the output files written and the ones that could not be written.
	Written int
	Failed  int
	// Skipped is set when the file was filtered out or could not be decoded.
	Skipped bool
}

// Processor runs detection on a single image and writes the outputs.
// It is safe for concurrent use; the only shared state it touches is
// the output tree, whose directory creation is serialised.
type Processor struct {
	cfg Config
	det Detector
	log logrus.FieldLogger

	mu sync.Mutex
}

// NewProcessor returns a processor writing under cfg.OutputDir.
func NewProcessor(cfg Config, det Detector, log logrus.FieldLogger) *Processor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{cfg: cfg, det: det, log: log}
}

// Process handles the file name found in srcDir. The outputs are written
// to OutputDir/relPath, relPath being empty for files outside any input tree.
// Failures never abort the batch: they are logged and reflected in the result.
func (p *Processor) Process(name, srcDir, relPath string) Result {
	src := filepath.Join(srcDir, name)
	res := Result{Source: src}
	log := p.log.WithField("file", src)

	base, ext := splitExt(name)
	ext = strings.TrimPrefix(ext, ".")
	if !p.cfg.AcceptsExtension(ext) {
		log.Debug("extension not allowed, skipping")
		res.Skipped = true
		return res
	}

	img, format, err := DecodeImage(src)
	if err != nil {
		if errors.Is(err, ErrNotAnImage) {
			log.WithError(err).Debug("not an image, skipping")
		} else {
			log.WithError(err).Warn("could not read image, skipping")
		}
		res.Skipped = true
		return res
	}
	if ext == "" {
		ext = format
	}

	boxes, err := p.det.Detect(Grayscale(img), p.cfg.DetectParams())
	if err != nil {
		log.WithError(err).Warn("face detection failed")
		res.Skipped = true
		return res
	}
	res.Faces = len(boxes)
	if len(boxes) == 0 {
		log.Debug("no face detected")
		return res
	}
	log.WithField("faces", len(boxes)).Info("faces detected")

	outDir := filepath.Join(p.cfg.OutputDir, relPath)
	if err := p.ensureDir(outDir); err != nil {
		log.WithError(err).Error("could not create the output directory")
		if p.cfg.OutputFaces {
			res.Failed = len(boxes)
		} else {
			res.Failed = 1
		}
		return res
	}

	if p.cfg.OutputFaces {
		for i, b := range boxes {
			face := CropFace(img, b, p.cfg.FaceWidth, p.cfg.FaceHeight)
			out := filepath.Join(outDir, FaceName(base, p.cfg.Suffix, i+1, ext))
			p.write(face, out, &res)
		}
		return res
	}

	annotated := imaging.Clone(img)
	for _, b := range boxes {
		DrawRect(annotated, b, BoxColor, BoxThickness)
	}
	p.write(annotated, filepath.Join(outDir, AnnotatedName(base, p.cfg.Suffix, ext)), &res)

	return res
}

func (p *Processor) write(img image.Image, out string, res *Result) {
	if err := EncodeImage(img, out); err != nil {
		p.log.WithError(err).WithField("output", out).Error("could not write the output image")
		res.Failed++
		return
	}
	p.log.WithField("output", out).Info("image written")
	res.Written++
}

// ensureDir creates dir and its missing parents.
func (p *Processor) ensureDir(dir string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("unable to create %q: %w", dir, err)
	}
	return nil
}

// FaceName returns the file name of the n-th cropped face, n starting at 1.
func FaceName(base, suffix string, n int, ext string) string {
	return fmt.Sprintf("%s-%s-%d.%s", base, suffix, n, ext)
}

// AnnotatedName returns the file name of the annotated copy.
func AnnotatedName(base, suffix, ext string) string {
	return fmt.Sprintf("%s-%s.%s", base, suffix, ext)
}

// splitExt splits name into its base and its extension, dot included.
// Leading dots belong to the base, so ".profile" has no extension.
func splitExt(name string) (string, string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || strings.Trim(name[:i], ".") == "" {
		return name, ""
	}
	return name[:i], name[i:]
}
