package extractfaces

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Summary aggregates the results of a batch run.
type Summary struct {
	Candidates int
	Decoded    int
	Faces      int
	Written    int
	Failed     int
	Skipped    int
	Elapsed    time.Duration
}

// candidate is a file picked up by the traversal.
type candidate struct {
	name    string
	dir     string
	relPath string
}

// Runner enumerates the configured inputs and feeds them to the processor.
type Runner struct {
	cfg  Config
	proc *Processor
	log  logrus.FieldLogger

	// Progress receives the progress bar. Nil disables it.
	Progress io.Writer
}

// NewRunner returns a runner for the given configuration.
func NewRunner(cfg Config, proc *Processor, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{cfg: cfg, proc: proc, log: log}
}

// Execute processes the single input file, if any, then every file of the
// input directory, recursing into subdirectories when configured. Cancelling
// the context stops the run between two files; the files already written stay.
func (r *Runner) Execute(ctx context.Context) Summary {
	var (
		sum     Summary
		wg      sync.WaitGroup
		start   = time.Now()
		workers = r.cfg.Workers
	)
	if workers < 1 {
		workers = 1
	}

	progress := r.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Extracting faces"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	paths := r.walk(ctx)
	results := make(chan Result)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			r.consumer(ctx, paths, results)
		}()
	}

	// Close the channel after the values are consumed.
	go func() {
		defer close(results)
		wg.Wait()
	}()

	for res := range results {
		sum.Candidates++
		if res.Skipped {
			sum.Skipped++
		} else {
			sum.Decoded++
		}
		sum.Faces += res.Faces
		sum.Written += res.Written
		sum.Failed += res.Failed
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if err := ctx.Err(); err != nil {
		r.log.WithError(err).Warn("run interrupted")
	}
	sum.Elapsed = time.Since(start)

	return sum
}

// consumer reads the candidates from the paths channel and runs the processor against each one.
func (r *Runner) consumer(ctx context.Context, paths <-chan candidate, results chan<- Result) {
	for c := range paths {
		if ctx.Err() != nil {
			continue
		}
		results <- r.proc.Process(c.name, c.dir, c.relPath)
	}
}

// walk starts a new goroutine sending every candidate file on the returned
// channel: the single input file first, then the content of the input directory.
// It stops early when the context is cancelled.
func (r *Runner) walk(ctx context.Context) <-chan candidate {
	paths := make(chan candidate)

	send := func(c candidate) bool {
		select {
		case <-ctx.Done():
			return false
		case paths <- c:
			return true
		}
	}

	go func() {
		defer close(paths)

		if r.cfg.HasInputFile() {
			dir, name := filepath.Split(r.cfg.InputFile)
			if !send(candidate{name: name, dir: dir}) {
				return
			}
		}
		if !r.cfg.HasInputDir() {
			return
		}

		root := filepath.Clean(r.cfg.InputDir)
		if !r.cfg.Recursive {
			entries, err := os.ReadDir(root)
			if err != nil {
				r.log.WithError(err).WithField("dir", root).Error("could not list the input directory")
				return
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				if !send(candidate{name: e.Name(), dir: root}) {
					return
				}
			}
			return
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				r.log.WithError(err).WithField("path", path).Warn("could not access path")
				return nil
			}
			if d.IsDir() {
				return nil
			}
			dir := filepath.Dir(path)
			if !send(candidate{name: d.Name(), dir: dir, relPath: relativeDir(root, dir)}) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			r.log.WithError(err).WithField("dir", root).Error("directory walk failed")
		}
	}()

	return paths
}

// relativeDir returns dir relative to root with no leading or trailing separator.
// The root itself maps to the empty string.
func relativeDir(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return ""
	}
	return rel
}
