package extractfaces

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1.3, cfg.ScaleFactor)
	assert.Equal(t, 5, cfg.MinNeighbors)
	assert.Equal(t, 30, cfg.MinWidth)
	assert.Equal(t, 30, cfg.MinHeight)
	assert.Equal(t, 224, cfg.FaceWidth)
	assert.Equal(t, 224, cfg.FaceHeight)
	assert.Equal(t, "face", cfg.Suffix)
	assert.Equal(t, BackendPigo, cfg.Backend)
	assert.Equal(t, 1, cfg.Workers)
	assert.False(t, cfg.OutputFaces)
	assert.False(t, cfg.Recursive)
	assert.Empty(t, cfg.Extensions)
}

func TestConfig_ParseExtensions(t *testing.T) {
	assert.Equal(t, []string{"png", "jpg"}, ParseExtensions("png,jpg"))
	assert.Equal(t, []string{"png", "jpg"}, ParseExtensions(".png, .jpg,"))
	assert.Nil(t, ParseExtensions(""))
}

func TestConfig_AcceptsExtension(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.AcceptsExtension("anything"))
	assert.True(t, cfg.AcceptsExtension(""))

	cfg.Extensions = []string{"png", "jpg"}
	assert.True(t, cfg.AcceptsExtension("png"))
	assert.False(t, cfg.AcceptsExtension("PNG"))
	assert.False(t, cfg.AcceptsExtension("jpeg"))
	assert.False(t, cfg.AcceptsExtension(""))
}

func TestConfig_DetectParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinWidth, cfg.MinHeight = 40, 20

	p := cfg.DetectParams()
	assert.Equal(t, 40, p.MinSize().X, "width comes first")
	assert.Equal(t, 20, p.MinSize().Y)
	assert.Equal(t, cfg.ScaleFactor, p.ScaleFactor)
	assert.Equal(t, cfg.MinNeighbors, p.MinNeighbors)
}

func TestConfig_Prepare(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	notDir := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(notDir, []byte("x"), 0644))

	valid := DefaultConfig()
	valid.InputDir = dir
	valid.OutputDir = dir

	t.Run("valid", func(t *testing.T) {
		cfg, err := valid.Prepare()
		require.NoError(t, err)
		assert.Empty(t, cfg.Cascade, "pigo falls back to the embedded cascade")
	})

	t.Run("haar cascade default", func(t *testing.T) {
		c := valid
		c.Backend = BackendHaar
		cfg, err := c.Prepare()
		require.NoError(t, err)
		assert.Equal(t, DefaultHaarCascade, filepath.Base(cfg.Cascade))
	})

	t.Run("output defaults to the input file directory", func(t *testing.T) {
		c := DefaultConfig()
		c.InputFile = file
		cfg, err := c.Prepare()
		require.NoError(t, err)
		assert.Equal(t, dir, cfg.OutputDir)
	})

	t.Run("extensions are copied", func(t *testing.T) {
		c := valid
		c.Extensions = []string{"png"}
		cfg, err := c.Prepare()
		require.NoError(t, err)
		cfg.Extensions[0] = "jpg"
		assert.Equal(t, "png", c.Extensions[0])
	})

	invalid := map[string]func(c *Config){
		"scale factor":   func(c *Config) { c.ScaleFactor = 1.0 },
		"min neighbors":  func(c *Config) { c.MinNeighbors = 0 },
		"min width":      func(c *Config) { c.MinWidth = 0 },
		"min height":     func(c *Config) { c.MinHeight = -1 },
		"face width":     func(c *Config) { c.FaceWidth = 0 },
		"face height":    func(c *Config) { c.FaceHeight = 0 },
		"workers":        func(c *Config) { c.Workers = -2 },
		"min score":      func(c *Config) { c.MinScore = -1 },
		"backend":        func(c *Config) { c.Backend = "dnn" },
		"output missing": func(c *Config) { c.OutputDir = filepath.Join(dir, "missing") },
		"output is file": func(c *Config) { c.OutputDir = notDir },
		"no input":       func(c *Config) { c.InputDir = ""; c.InputFile = filepath.Join(dir, "missing.jpg") },
	}
	for name, mutate := range invalid {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			_, err := c.Prepare()
			assert.Error(t, err)
		})
	}

	t.Run("sentinels", func(t *testing.T) {
		c := valid
		c.InputDir = ""
		_, err := c.Prepare()
		assert.True(t, errors.Is(err, ErrNoInput))

		c = valid
		c.OutputDir = notDir
		_, err = c.Prepare()
		assert.True(t, errors.Is(err, ErrOutputDir))

		c = valid
		c.InputDir = file
		_, err = c.Prepare()
		assert.True(t, errors.Is(err, ErrNoInput), "a file is not an input directory")
	})
}

func TestConfig_FindCascade(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, DefaultHaarCascade), []byte("<opencv_storage/>"), 0644))

	assert.Equal(t, filepath.Join(dataDir, DefaultHaarCascade),
		findCascade(DefaultHaarCascade, []string{missing, dataDir}))
	assert.Equal(t, DefaultHaarCascade, findCascade(DefaultHaarCascade, []string{missing}))

	local := filepath.Join(t.TempDir(), "custom.xml")
	require.NoError(t, os.WriteFile(local, []byte("<opencv_storage/>"), 0644))
	assert.Equal(t, local, findCascade(local, []string{dataDir}))
}
