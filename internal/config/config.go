// Package config loads runtime configuration from viper.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Profile store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendFyne   = "fyne" // fyne app preferences, shared with GUI hosts
)

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// ProfilesConfig selects where calibration profiles persist.
type ProfilesConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"` // empty means the backend default
}

// ThicknessConfig tunes the thickness estimator.
type ThicknessConfig struct {
	Samples int `mapstructure:"samples"`
}

// UnitsConfig selects physical unit labels.
type UnitsConfig struct {
	Labels string `mapstructure:"labels"` // cyrillic or greek
}

// Config holds all runtime configuration.
// Values are populated from .histomorph.yaml, HISTOMORPH_* env vars, and CLI flags.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Profiles  ProfilesConfig  `mapstructure:"profiles"`
	Thickness ThicknessConfig `mapstructure:"thickness"`
	Units     UnitsConfig     `mapstructure:"units"`
}

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("profiles.backend", BackendFile)
	v.SetDefault("profiles.path", "")
	v.SetDefault("thickness.samples", 200)
	v.SetDefault("units.labels", "cyrillic")
}

// Load reads configuration from v, applying defaults for any values not set
// by config file, environment, or flags.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Profiles.Backend = strings.ToLower(cfg.Profiles.Backend)
	cfg.Units.Labels = strings.ToLower(cfg.Units.Labels)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	switch c.Profiles.Backend {
	case BackendFile, BackendSQLite, BackendMemory, BackendFyne:
	default:
		return fmt.Errorf("profiles.backend: unknown backend %q", c.Profiles.Backend)
	}
	switch c.Units.Labels {
	case "cyrillic", "greek":
	default:
		return fmt.Errorf("units.labels: expected cyrillic or greek, got %q", c.Units.Labels)
	}
	if c.Thickness.Samples < 2 {
		return fmt.Errorf("thickness.samples: need at least 2, got %d", c.Thickness.Samples)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: expected text or json, got %q", c.Log.Format)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return l, nil
}

// NewLogger returns a structured slog.Logger writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
