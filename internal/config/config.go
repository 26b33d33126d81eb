// Package config loads the softportal YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/softportal/device/emulated/infinity"
	"github.com/ardnew/softportal/device/emulated/skylander"
	"github.com/ardnew/softportal/pkg"
)

// Supported portal families.
const (
	FamilyInfinity  = "infinity"
	FamilySkylander = "skylander"
)

type Config struct {
	Family  string        `yaml:"family"`
	Log     LogConfig     `yaml:"log"`
	Figures []FigureSpec  `yaml:"figures,omitempty"`
	Trace   TraceConfig   `yaml:"trace"`
	Library LibraryConfig `yaml:"library"`
	Manage  ManageConfig  `yaml:"manage"`
	Timing  TimingConfig  `yaml:"timing"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FigureSpec is a figure loaded at startup. Slot is a role name for the
// Infinity base and an informational slot number for the Skylander portal.
type FigureSpec struct {
	Slot string `yaml:"slot"`
	Path string `yaml:"path"`
}

// TraceConfig enables the transfer trace when Dir is set.
type TraceConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// LibraryConfig enables the figure library when Path is set.
type LibraryConfig struct {
	Path string `yaml:"path"`
}

// ManageConfig enables the management endpoint when Listen is set.
type ManageConfig struct {
	Listen string `yaml:"listen"`
}

type TimingConfig struct {
	// Realtime makes the transfer thread wait out completion delays
	// instead of stepping a manual clock.
	Realtime bool `yaml:"realtime"`
}

// Load reads the configuration at path. An empty path returns defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	pkg.LogDebug(pkg.ComponentConfig, "configuration loaded",
		"path", path,
		"family", cfg.Family,
		"figures", len(cfg.Figures))
	return cfg, nil
}

func defaults() Config {
	return Config{
		Family: FamilyInfinity,
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Trace: TraceConfig{
			Prefix: "transfers",
		},
		Timing: TimingConfig{
			Realtime: true,
		},
	}
}

func (c *Config) Normalize() {
	c.Family = strings.ToLower(strings.TrimSpace(c.Family))
	if c.Family == "" {
		c.Family = FamilyInfinity
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	for i := range c.Figures {
		c.Figures[i].Slot = strings.TrimSpace(c.Figures[i].Slot)
		c.Figures[i].Path = strings.TrimSpace(c.Figures[i].Path)
	}
	c.Trace.Dir = strings.TrimSpace(c.Trace.Dir)
	c.Trace.Prefix = strings.TrimSpace(c.Trace.Prefix)
	if c.Trace.Prefix == "" {
		c.Trace.Prefix = "transfers"
	}
	c.Library.Path = strings.TrimSpace(c.Library.Path)
	c.Manage.Listen = strings.TrimSpace(c.Manage.Listen)
}

func (c Config) Validate() error {
	c.Normalize()
	switch c.Family {
	case FamilyInfinity, FamilySkylander:
	default:
		return fmt.Errorf("family %q: %w", c.Family, pkg.ErrUnknownFamily)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}

	seen := make(map[string]bool, len(c.Figures))
	for i, f := range c.Figures {
		if f.Path == "" {
			return fmt.Errorf("figures[%d] path must not be empty", i)
		}
		if err := ValidateSlot(c.Family, f.Slot); err != nil {
			return fmt.Errorf("figures[%d]: %w", i, err)
		}
		if c.Family == FamilyInfinity {
			if seen[f.Slot] {
				return fmt.Errorf("figures[%d] duplicate slot %s", i, f.Slot)
			}
			seen[f.Slot] = true
		}
	}
	if c.Family == FamilySkylander && len(c.Figures) > skylander.MaxFigures {
		return fmt.Errorf("figures: %d exceeds %d slots", len(c.Figures), skylander.MaxFigures)
	}
	return nil
}

// ValidateSlot checks a slot name for family. Skylander slots may be empty.
func ValidateSlot(family, slot string) error {
	switch family {
	case FamilyInfinity:
		_, err := infinity.ParseRole(slot)
		return err
	case FamilySkylander:
		if slot == "" {
			return nil
		}
		n, err := strconv.Atoi(slot)
		if err != nil || n < 0 || n >= skylander.MaxFigures {
			return fmt.Errorf("%q: %w", slot, pkg.ErrSlotInvalid)
		}
		return nil
	default:
		return fmt.Errorf("family %q: %w", family, pkg.ErrUnknownFamily)
	}
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelWarn, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level)
}

// LogFormat returns the configured log output format.
func (c Config) LogFormat() pkg.LogFormat {
	if c.Log.Format == "json" {
		return pkg.LogFormatJSON
	}
	return pkg.LogFormatText
}

// ApplyLogging configures the process logger.
func (c Config) ApplyLogging() error {
	level, err := c.SlogLevel()
	if err != nil {
		return err
	}
	pkg.SetLogLevel(level)
	pkg.SetLogFormat(c.LogFormat())
	return nil
}
