// Package config loads the vapo configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"src.vapo.dev/pkg/ui"
)

// DefaultPath is the configuration file used when none is given explicitly.
// It is optional.
const DefaultPath = "vapo.yaml"

// Names of the backends.
const (
	BackendAuto     = "auto"
	BackendTTY      = "tty"
	BackendHeadless = "headless"
	BackendRPC      = "rpc"
)

// Config is the content of a configuration file.
type Config struct {
	// Path of the script.
	Script string `yaml:"script"`
	// One of the Backend* constants.
	Backend string `yaml:"backend"`
	// Path of the debug log. Empty discards logs.
	Log string `yaml:"log"`
	// Path of the change journal. Empty disables it.
	Journal string `yaml:"journal"`
	// Address of the Prometheus listener. Empty disables it.
	Metrics string `yaml:"metrics"`
	// Maximum number of frames drawn by the headless backend; 0 means no
	// limit.
	Frames int `yaml:"frames"`
	// Redraw interval of the terminal backend; 0 redraws only on input.
	Interval time.Duration `yaml:"interval"`
	Theme    Theme         `yaml:"theme"`
}

// Theme contains the colors of the error screen.
type Theme struct {
	Error string `yaml:"error"`
}

// Default returns the configuration used for keys absent from the file.
func Default() Config {
	return Config{
		Script:   "vapo.lua",
		Backend:  BackendAuto,
		Interval: 100 * time.Millisecond,
		Theme:    Theme{Error: "#aa6666"},
	}
}

// Load reads the configuration file at path. If path is empty, DefaultPath
// is read if it exists, and Default is returned otherwise.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, err
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse parses a configuration file. The name is only used in error messages.
// Unknown keys are errors.
func Parse(r io.Reader, name string) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("%s: %w", name, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// Validate checks the values of cfg.
func (cfg Config) Validate() error {
	switch cfg.Backend {
	case BackendAuto, BackendTTY, BackendHeadless, BackendRPC:
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if cfg.Frames < 0 {
		return fmt.Errorf("frames must not be negative, got %d", cfg.Frames)
	}
	if cfg.Interval < 0 {
		return fmt.Errorf("interval must not be negative, got %v", cfg.Interval)
	}
	if _, err := cfg.ErrorColor(); err != nil {
		return fmt.Errorf("theme.error: %w", err)
	}
	return nil
}

// ErrorColor returns the parsed color of the error banner.
func (cfg Config) ErrorColor() (ui.Color, error) {
	return ui.ParseColor(cfg.Theme.Error)
}
