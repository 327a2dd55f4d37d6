package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/imgtools/extractfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// acceptAllCascade writes a pigo cascade scoring every window with 1.0.
func acceptAllCascade(t *testing.T) string {
	t.Helper()
	packet := make([]byte, 24)
	binary.LittleEndian.PutUint32(packet[12:], 1)
	binary.LittleEndian.PutUint32(packet[16:], math.Float32bits(1.0))

	path := filepath.Join(t.TempDir(), "facefinder")
	require.NoError(t, os.WriteFile(path, packet, 0644))
	return path
}

func envMap(env map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func runCmd(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(envMap(env))
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCmd_EnvKey(t *testing.T) {
	assert.Equal(t, "EXTRACTFACES_MIN_NEIGHBORS", envKey("min-neighbors"))
	assert.Equal(t, "EXTRACTFACES_SUFFIX", envKey("suffix"))
}

func TestCmd_CropRun(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	require.NoError(t, imaging.Save(imaging.New(100, 80, color.Black), filepath.Join(in, "dog-1.png")))

	stderr, err := runCmd(t, nil,
		"-i", in, "-o", out, "-c", acceptAllCascade(t),
		"-F", "-W", "48", "-H", "64", "-w", "30", "-h", "30",
	)
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "Execution time:")

	face, err := imaging.Open(filepath.Join(out, "dog-1-face-1.png"))
	require.NoError(t, err)
	assert.Equal(t, 48, face.Bounds().Dx())
	assert.Equal(t, 64, face.Bounds().Dy())
}

func TestCmd_EnvFallback(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	require.NoError(t, imaging.Save(imaging.New(100, 80, color.Black), filepath.Join(in, "cat.png")))
	require.NoError(t, imaging.Save(imaging.New(100, 80, color.Black), filepath.Join(in, "cat.jpg")))

	env := map[string]string{
		"EXTRACTFACES_INPUT_DIRECTORY":  in,
		"EXTRACTFACES_OUTPUT_DIRECTORY": out,
		"EXTRACTFACES_CASCADE":          acceptAllCascade(t),
		"EXTRACTFACES_SUFFIX":           "env",
		"EXTRACTFACES_EXTENSIONS":       "png",
	}
	// Command line values win over the environment.
	stderr, err := runCmd(t, env, "-s", "flag")
	require.NoError(t, err, stderr)

	assert.FileExists(t, filepath.Join(out, "cat-flag.png"))
	assert.NoFileExists(t, filepath.Join(out, "cat-env.png"))
	assert.NoFileExists(t, filepath.Join(out, "cat-flag.jpg"))
}

func TestCmd_MalformedEnv(t *testing.T) {
	env := map[string]string{"EXTRACTFACES_MIN_NEIGHBORS": "many"}
	_, err := runCmd(t, env, "-i", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--min-neighbors")
	assert.Contains(t, err.Error(), "EXTRACTFACES_MIN_NEIGHBORS")
}

func TestCmd_FatalErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := runCmd(t, nil, "-i", filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, extractfaces.ErrNoInput))

	_, err = runCmd(t, nil, "-i", dir, "-o", filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, extractfaces.ErrOutputDir))

	_, err = runCmd(t, nil, "-i", dir, "-x", "0.9")
	assert.Error(t, err)

	_, err = runCmd(t, nil, "-i", dir, "-o", dir, "-c", filepath.Join(dir, "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "face detector")

	_, err = runCmd(t, nil, "-i", dir, "-o", dir, "--log-level", "loud")
	assert.Error(t, err)

	_, err = runCmd(t, nil, "unexpected-argument")
	assert.Error(t, err)
}

func TestCmd_Help(t *testing.T) {
	out, err := runCmd(t, nil, "-?")
	require.NoError(t, err)
	assert.Contains(t, out, "--min-height")
	assert.Contains(t, out, "--output-face")
	assert.Contains(t, out, "EXTRACTFACES_")
}

func TestCmd_DefaultCascade(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	sample, err := os.ReadFile(filepath.Join("..", "..", "testdata", "sample.jpg"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(in, "sample.jpg"), sample, 0644))

	stderr, err := runCmd(t, nil, "-i", in, "-o", out, "-F")
	require.NoError(t, err, stderr)
	assert.NotContains(t, stderr, "\x1b[", "no color codes when stderr is not a terminal")

	face, err := imaging.Open(filepath.Join(out, "sample-face-1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, extractfaces.DefaultFaceSize, extractfaces.DefaultFaceSize), face.Bounds())
	assert.NoFileExists(t, filepath.Join(out, "sample-face-2.jpg"))
}
