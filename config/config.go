// Package config loads logmap settings from TOML or YAML files, .env files
// and LOGMAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by [Config.ApplyEnv].
const (
	EnvLevel     = "LOGMAP_LEVEL"
	EnvFormat    = "LOGMAP_FORMAT"
	EnvQuiet     = "LOGMAP_QUIET"
	EnvWorkers   = "LOGMAP_WORKERS"
	EnvPrecision = "LOGMAP_PRECISION"
	EnvProgress  = "LOGMAP_PROGRESS"
)

// Config holds every user-tunable setting.
type Config struct {
	Level               string   `toml:"level" yaml:"level"`
	Format              string   `toml:"format" yaml:"format"`
	Quiet               bool     `toml:"quiet" yaml:"quiet"`
	Workers             int      `toml:"workers" yaml:"workers"`
	Precision           int      `toml:"precision" yaml:"precision"`
	MinSecondsLogworthy float64  `toml:"min_seconds_logworthy" yaml:"min_seconds_logworthy"`
	Glyphs              Glyphs   `toml:"glyphs" yaml:"glyphs"`
	Progress            Progress `toml:"progress" yaml:"progress"`
}

// Glyphs are the characters used to draw scope nesting.
type Glyphs struct {
	Vertical string `toml:"vertical" yaml:"vertical"`
	Top      string `toml:"top" yaml:"top"`
	Bottom   string `toml:"bottom" yaml:"bottom"`
}

// Progress configures the progress bar renderer.
type Progress struct {
	Enabled     bool     `toml:"enabled" yaml:"enabled"`
	MinInterval Duration `toml:"min_interval" yaml:"min_interval"`
	Width       int      `toml:"width" yaml:"width"`
}

// Duration is a time.Duration that decodes from strings like "150ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler (used by toml).
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Level:     "DEBUG",
		Format:    "text",
		Precision: 1,
		Glyphs: Glyphs{
			Vertical: "￨",
			Top:      "⎾",
			Bottom:   "⎿",
		},
		Progress: Progress{
			Enabled:     true,
			MinInterval: Duration{100 * time.Millisecond},
		},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .toml, .yaml or .yml. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension %q", ext)
	}
	return cfg, cfg.Validate()
}

// LoadEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from LOGMAP_* variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvLevel); ok && v != "" {
		c.Level = v
	}
	if v, ok := os.LookupEnv(EnvFormat); ok && v != "" {
		c.Format = v
	}
	if v, ok := os.LookupEnv(EnvQuiet); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvQuiet, err)
		}
		c.Quiet = b
	}
	if v, ok := os.LookupEnv(EnvProgress); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvProgress, err)
		}
		c.Progress.Enabled = b
	}
	if v, ok := os.LookupEnv(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}
	if v, ok := os.LookupEnv(EnvPrecision); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPrecision, err)
		}
		c.Precision = n
	}
	return c.Validate()
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.Precision < 0 || c.Precision > 9 {
		errs = append(errs, fmt.Errorf("precision must be in [0, 9], got %d", c.Precision))
	}
	if c.MinSecondsLogworthy < 0 {
		errs = append(errs, fmt.Errorf("min_seconds_logworthy must be >= 0, got %v", c.MinSecondsLogworthy))
	}
	if c.Progress.Width < 0 {
		errs = append(errs, fmt.Errorf("progress.width must be >= 0, got %d", c.Progress.Width))
	}
	return errors.Join(errs...)
}
