package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "￨", cfg.Glyphs.Vertical)
	assert.True(t, cfg.Progress.Enabled)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "logmap.toml", `
level = "info"
format = "json"
workers = 3
precision = 2
min_seconds_logworthy = 5.0

[glyphs]
vertical = "|"

[progress]
enabled = false
min_interval = "250ms"
width = 120
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 2, cfg.Precision)
	assert.InDelta(t, 5.0, cfg.MinSecondsLogworthy, 1e-9)
	assert.Equal(t, "|", cfg.Glyphs.Vertical)
	assert.Equal(t, "⎾", cfg.Glyphs.Top, "unset glyphs keep their defaults")
	assert.False(t, cfg.Progress.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Progress.MinInterval.Duration)
	assert.Equal(t, 120, cfg.Progress.Width)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "logmap.yaml", `
level: TRACE
quiet: true
progress:
  enabled: true
  min_interval: 1s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "TRACE", cfg.Level)
	assert.True(t, cfg.Quiet)
	assert.Equal(t, time.Second, cfg.Progress.MinInterval.Duration)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeFile(t, "bad.toml", "workers = -2\nprecision = 12\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "precision")
}

func TestLoadUnknownExtension(t *testing.T) {
	path := writeFile(t, "logmap.ini", "level=debug")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvLevel, "warning")
	t.Setenv(EnvQuiet, "true")
	t.Setenv(EnvWorkers, "6")
	t.Setenv(EnvProgress, "false")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "warning", cfg.Level)
	assert.True(t, cfg.Quiet)
	assert.Equal(t, 6, cfg.Workers)
	assert.False(t, cfg.Progress.Enabled)
}

func TestApplyEnvBadValue(t *testing.T) {
	t.Setenv(EnvWorkers, "many")
	cfg := Default()
	assert.Error(t, cfg.ApplyEnv())
}

func TestLoadEnvDoesNotOverride(t *testing.T) {
	path := writeFile(t, "test.env", "LOGMAP_TEST_A=from-file\nLOGMAP_TEST_B=from-file\n")
	t.Setenv("LOGMAP_TEST_A", "from-env")
	t.Setenv("LOGMAP_TEST_B", "")
	require.NoError(t, os.Unsetenv("LOGMAP_TEST_B"))

	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, "from-env", os.Getenv("LOGMAP_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("LOGMAP_TEST_B"))
	require.NoError(t, os.Unsetenv("LOGMAP_TEST_B"))
}
