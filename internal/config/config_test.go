package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendPoppler, cfg.Renderer)
	assert.Equal(t, 0.1, cfg.MinScale)
	assert.Equal(t, 10.0, cfg.MaxScale)
	assert.Contains(t, cfg.Styles, "highlight")
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
renderer: image
max_scale: 4.0
resize_debounce_ms: 50
styles:
  text:
    font_size: 18
    color: "#333333"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendImage, cfg.Renderer)
	assert.Equal(t, 4.0, cfg.MaxScale)
	assert.Equal(t, 50, cfg.ResizeDebounceMs)
	assert.Equal(t, 18.0, cfg.Styles["text"].FontSize)
	// Untouched defaults remain.
	assert.Equal(t, 0.1, cfg.MinScale)
	assert.Equal(t, 150.0, cfg.PopplerDPI)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	for _, content := range []string{
		"renderer: quartz\n",
		"min_scale: 2.0\nmax_scale: 1.0\n",
		"zoom_step: 0.9\n",
		"resize_debounce_ms: -5\n",
		"renderer: [broken\n",
	} {
		_, err := Load(writeConfig(t, content))
		assert.Error(t, err, "content: %s", content)
	}
}

func TestClampScale(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.MinScale, cfg.ClampScale(0.0001))
	assert.Equal(t, cfg.MaxScale, cfg.ClampScale(50))
	assert.Equal(t, 1.5, cfg.ClampScale(1.5))
}
