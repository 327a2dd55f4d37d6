package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/imgtools/extractfaces"
	"github.com/imgtools/extractfaces/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envPrefix prefixes the environment variables read for the flags left unset.
const envPrefix = "EXTRACTFACES_"

const helpBanner = `Detect faces in a single image or in a directory of images and write
either a copy of each image with the faces outlined, or one cropped and
resized image per face.

Outputs are named <base>-<suffix>.<ext> in annotate mode and
<base>-<suffix>-<n>.<ext> in crop mode (--output-face). Every flag left unset
on the command line is read from EXTRACTFACES_<FLAG_NAME>, e.g.
EXTRACTFACES_MIN_NEIGHBORS; a .env file in the working directory is loaded first.`

// lookupFunc is the signature of os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// options collects the flag values that are not stored directly in the configuration.
type options struct {
	cfg        extractfaces.Config
	extensions string
	logLevel   string
}

func newRootCmd(lookupEnv lookupFunc) *cobra.Command {
	opts := &options{cfg: extractfaces.DefaultConfig(), logLevel: "warning"}

	cmd := &cobra.Command{
		Use:           "extractfaces",
		Short:         "Batch face extraction from images",
		Long:          helpBanner,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyEnv(cmd.Flags(), lookupEnv); err != nil {
				return err
			}
			return opts.run(cmd)
		},
	}

	cfg := &opts.cfg
	flags := cmd.Flags()
	flags.SortFlags = false

	flags.StringVarP(&cfg.InputFile, "input-file", "f", "", "single image to process")
	flags.StringVarP(&cfg.InputDir, "input-directory", "i", "", "directory of images to process")
	flags.BoolVarP(&cfg.Recursive, "recursive", "r", false, "descend into the subdirectories of the input directory")
	flags.StringVarP(&cfg.OutputDir, "output-directory", "o", "", "output directory (defaults to the input file directory)")
	flags.StringVarP(&cfg.Suffix, "suffix", "s", cfg.Suffix, "suffix appended to the output file names")
	flags.BoolVarP(&cfg.OutputFaces, "output-face", "F", false, "write one cropped image per face instead of an annotated copy")
	flags.StringVarP(&opts.extensions, "extensions", "e", "", "comma separated list of accepted extensions, e.g. png,jpg (default all)")
	flags.StringVarP(&cfg.Backend, "backend", "b", cfg.Backend, `detector backend: "pigo" or "haar" (haar requires a gocv build)`)
	flags.StringVarP(&cfg.Cascade, "cascade", "c", "", fmt.Sprintf("cascade file (default: embedded facefinder for pigo, %q from the OpenCV data directory for haar)",
		extractfaces.DefaultHaarCascade))
	flags.Float64VarP(&cfg.ScaleFactor, "scale-factor", "x", cfg.ScaleFactor, "image pyramid scale factor, must be greater than 1")
	flags.IntVarP(&cfg.MinNeighbors, "min-neighbors", "n", cfg.MinNeighbors, "overlapping candidates needed to accept a face")
	flags.IntVarP(&cfg.MinWidth, "min-width", "w", cfg.MinWidth, "minimum face width in pixels")
	flags.IntVarP(&cfg.MinHeight, "min-height", "h", cfg.MinHeight, "minimum face height in pixels")
	flags.Float64Var(&cfg.MinScore, "min-score", cfg.MinScore, "minimum detection score (pigo only)")
	flags.IntVarP(&cfg.FaceWidth, "face-width", "W", cfg.FaceWidth, "width of the cropped faces")
	flags.IntVarP(&cfg.FaceHeight, "face-height", "H", cfg.FaceHeight, "height of the cropped faces")
	flags.IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "number of images processed concurrently")
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level: debug, info, warning or error")
	// -h belongs to --min-height.
	flags.BoolP("help", "?", false, "show this help message")

	return cmd
}

// applyEnv sets every flag not given on the command line from its
// EXTRACTFACES_<FLAG_NAME> environment variable, if present.
// Values are parsed with the flag's own type, so a malformed number fails here.
func applyEnv(flags *pflag.FlagSet, lookupEnv lookupFunc) error {
	if lookupEnv == nil {
		return nil
	}
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "help" {
			return
		}
		key := envKey(f.Name)
		val, ok := lookupEnv(key)
		if !ok {
			return
		}
		if err := flags.Set(f.Name, val); err != nil {
			errs = append(errs, fmt.Errorf("invalid value %q for --%s from %s: %w", val, f.Name, key, err))
		}
	})
	return errors.Join(errs...)
}

// envKey maps a flag name to its environment variable.
func envKey(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

func newLogger(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors: !utils.IsTerminal(w),
		FullTimestamp: true,
	})
	return log, nil
}

func (o *options) run(cmd *cobra.Command) error {
	stderr := cmd.ErrOrStderr()
	utils.SetColored(utils.IsTerminal(stderr))

	log, err := newLogger(stderr, o.logLevel)
	if err != nil {
		return err
	}

	o.cfg.Extensions = extractfaces.ParseExtensions(o.extensions)
	cfg, err := o.cfg.Prepare()
	if err != nil {
		return err
	}

	det, err := extractfaces.NewDetector(cfg)
	if err != nil {
		return fmt.Errorf("failed to load the face detector: %w", err)
	}
	defer det.Close()

	proc := extractfaces.NewProcessor(cfg, det, log)
	runner := extractfaces.NewRunner(cfg, proc, log)
	if utils.IsTerminal(stderr) {
		runner.Progress = stderr
	}

	sum := runner.Execute(cmd.Context())

	log.WithFields(logrus.Fields{
		"candidates": sum.Candidates,
		"decoded":    sum.Decoded,
		"skipped":    sum.Skipped,
		"faces":      sum.Faces,
		"written":    sum.Written,
		"failed":     sum.Failed,
	}).Info("batch finished")

	fmt.Fprintf(stderr, "%s %s, %s\n",
		utils.DecorateText(fmt.Sprintf("%d faces", sum.Faces), utils.StatusMessage),
		utils.DecorateText(fmt.Sprintf("%d files written", sum.Written), utils.SuccessMessage),
		utils.DecorateText(fmt.Sprintf("%d failed", sum.Failed), failedStyle(sum.Failed)),
	)
	fmt.Fprintf(stderr, "Execution time: %s\n", utils.DecorateText(utils.FormatTime(sum.Elapsed), utils.SuccessMessage))

	if err := cmd.Context().Err(); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	return nil
}

func failedStyle(n int) utils.MessageType {
	if n > 0 {
		return utils.ErrorMessage
	}
	return utils.DefaultMessage
}
