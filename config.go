package extractfaces

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Detector backends.
const (
	BackendPigo = "pigo"
	BackendHaar = "haar"
)

// Default tuning values. The original usage text of the tool advertised a
// minimum detection size of 40 and 3 min-neighbors, while the values it
// actually ran with were 30 and 5. The values below are the ones it ran with.
const (
	DefaultScaleFactor  = 1.3
	DefaultMinNeighbors = 5
	DefaultMinSize      = 30
	DefaultFaceSize     = 224
	DefaultSuffix       = "face"
	DefaultMinScore     = 5.0

	// DefaultHaarCascade is looked up in the working directory first, then in haarDataDirs.
	DefaultHaarCascade = "haarcascade_frontalface_default.xml"
)

// haarDataDirs lists the directories OpenCV installs its bundled cascades into.
var haarDataDirs = []string{
	"/usr/share/opencv4/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
	"/usr/local/share/opencv/haarcascades",
}

var (
	// ErrNoInput is returned when neither an existing input file nor an existing input directory was given.
	ErrNoInput = errors.New("must have either an existing input file or an existing input directory")
	// ErrOutputDir is returned when the output directory is missing or not a directory.
	ErrOutputDir = errors.New("output directory is not a directory or does not exist")
)

// Config holds the run parameters. It is built once at start up and
// passed by value to every component; nothing mutates it afterwards.
type Config struct {
	InputFile string
	InputDir  string
	Recursive bool
	OutputDir string
	Suffix    string

	Backend      string
	Cascade      string
	ScaleFactor  float64
	MinNeighbors int
	MinWidth     int
	MinHeight    int
	MinScore     float64

	FaceWidth   int
	FaceHeight  int
	OutputFaces bool
	Extensions  []string

	Workers int
}

// DefaultConfig returns the configuration used when no option is given.
func DefaultConfig() Config {
	return Config{
		Suffix:       DefaultSuffix,
		Backend:      BackendPigo,
		ScaleFactor:  DefaultScaleFactor,
		MinNeighbors: DefaultMinNeighbors,
		MinWidth:     DefaultMinSize,
		MinHeight:    DefaultMinSize,
		MinScore:     DefaultMinScore,
		FaceWidth:    DefaultFaceSize,
		FaceHeight:   DefaultFaceSize,
		Workers:      1,
	}
}

// ParseExtensions splits a comma separated allow-list. Empty items are
// dropped and a leading dot is tolerated, so "png,.jpg" yields [png jpg].
func ParseExtensions(list string) []string {
	var exts []string
	for _, e := range strings.Split(list, ",") {
		e = strings.TrimLeft(strings.TrimSpace(e), ".")
		if e != "" {
			exts = append(exts, e)
		}
	}
	return exts
}

// Prepare fills in the derived defaults and validates the configuration.
// The receiver is left untouched; the normalized copy is returned.
func (c Config) Prepare() (Config, error) {
	if c.Backend == "" {
		c.Backend = BackendPigo
	}
	// An empty pigo cascade selects the embedded facefinder model.
	if c.Cascade == "" && c.Backend == BackendHaar {
		c.Cascade = findCascade(DefaultHaarCascade, haarDataDirs)
	}
	if c.OutputDir == "" && c.InputFile != "" {
		c.OutputDir = filepath.Dir(c.InputFile)
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	c.Extensions = append([]string(nil), c.Extensions...)

	if err := c.validateTuning(); err != nil {
		return c, err
	}
	if err := c.validatePaths(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) validateTuning() error {
	switch c.Backend {
	case BackendPigo, BackendHaar:
	default:
		return fmt.Errorf("invalid backend %q: must be %q or %q", c.Backend, BackendPigo, BackendHaar)
	}
	if c.ScaleFactor <= 1.0 {
		return fmt.Errorf("invalid scale factor: must be greater than 1.0, got %v", c.ScaleFactor)
	}
	if c.MinNeighbors < 1 {
		return fmt.Errorf("invalid min-neighbors: must be >= 1, got %d", c.MinNeighbors)
	}
	if c.MinWidth < 1 || c.MinHeight < 1 {
		return fmt.Errorf("invalid minimum detection size %dx%d: both sides must be positive", c.MinWidth, c.MinHeight)
	}
	if c.FaceWidth < 1 || c.FaceHeight < 1 {
		return fmt.Errorf("invalid face output size %dx%d: both sides must be positive", c.FaceWidth, c.FaceHeight)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid workers: must be >= 1, got %d", c.Workers)
	}
	if c.MinScore < 0 {
		return fmt.Errorf("invalid min-score: must be >= 0, got %v", c.MinScore)
	}
	return nil
}

func (c Config) validatePaths() error {
	if !c.HasInputFile() && !c.HasInputDir() {
		return ErrNoInput
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: no output directory given", ErrOutputDir)
	}
	info, err := os.Stat(c.OutputDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %q", ErrOutputDir, c.OutputDir)
	}
	return nil
}

// findCascade returns name when it exists as given, otherwise the first
// dirs entry holding it. The bare name is returned when nothing matches,
// leaving the load error to the detector.
func findCascade(name string, dirs []string) string {
	if _, err := os.Stat(name); err == nil {
		return name
	}
	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return name
}

// HasInputFile reports whether a single input file is configured and exists.
func (c Config) HasInputFile() bool {
	if c.InputFile == "" {
		return false
	}
	info, err := os.Stat(c.InputFile)
	return err == nil && !info.IsDir()
}

// HasInputDir reports whether an input directory is configured and exists.
func (c Config) HasInputDir() bool {
	if c.InputDir == "" {
		return false
	}
	info, err := os.Stat(c.InputDir)
	return err == nil && info.IsDir()
}

// AcceptsExtension reports whether ext (without the leading dot) passes
// the allow-list. The comparison is exact and case sensitive.
func (c Config) AcceptsExtension(ext string) bool {
	if len(c.Extensions) == 0 {
		return true
	}
	for _, e := range c.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// DetectParams returns the detector tuning derived from the configuration.
func (c Config) DetectParams() DetectParams {
	return DetectParams{
		ScaleFactor:  c.ScaleFactor,
		MinNeighbors: c.MinNeighbors,
		MinWidth:     c.MinWidth,
		MinHeight:    c.MinHeight,
	}
}
