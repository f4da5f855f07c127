package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultCollapsedWidth  = 300
	DefaultCollapsedHeight = 40
	DefaultExpandedWidth   = 800
	DefaultExpandedHeight  = 400
	DefaultCornerRadius    = 10
)

// Size is a width/height pair in logical pixels.
type Size struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Color is an 8-bit RGBA color, written as a [r, g, b, a] array in TOML.
type Color [4]uint8

// RGBA returns the individual color components.
func (c Color) RGBA() (r, g, b, a uint8) {
	return c[0], c[1], c[2], c[3]
}

// Config represents the notchd configuration. A loaded Config is validated
// once at startup and treated as immutable for the process lifetime.
type Config struct {
	Collapsed    Size          `toml:"collapsed"`
	Expanded     Size          `toml:"expanded"`
	CornerRadius int           `toml:"corner_radius"`
	Background   Color         `toml:"background_color"`
	Font         string        `toml:"font"` // Path to a TTF/OTF; empty = built-in face
	Modules      ModulesConfig `toml:"modules"`
}

// ModulesConfig selects and configures the widget modules.
type ModulesConfig struct {
	// Enabled lists module ids in draw order (later = on top).
	Enabled []string `toml:"enabled"`

	// Settings maps module id to its private configuration table,
	// passed to the module unmodified.
	Settings map[string]map[string]any `toml:"settings"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Collapsed:    Size{Width: DefaultCollapsedWidth, Height: DefaultCollapsedHeight},
		Expanded:     Size{Width: DefaultExpandedWidth, Height: DefaultExpandedHeight},
		CornerRadius: DefaultCornerRadius,
		Background:   Color{0, 0, 0, 255},
		Modules: ModulesConfig{
			Enabled:  []string{"clock"},
			Settings: make(map[string]map[string]any),
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "notchd", "config.toml")
}

// Load loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if the file doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the geometric invariants the renderer and surface depend
// on. Unknown module ids are not an error here; the registry drops them with
// a warning at build time.
func (c *Config) Validate() error {
	if c.Collapsed.Width <= 0 || c.Collapsed.Height <= 0 {
		return fmt.Errorf("collapsed size must be positive, got %dx%d", c.Collapsed.Width, c.Collapsed.Height)
	}
	if c.Expanded.Width <= 0 || c.Expanded.Height <= 0 {
		return fmt.Errorf("expanded size must be positive, got %dx%d", c.Expanded.Width, c.Expanded.Height)
	}
	if c.Expanded.Width < c.Collapsed.Width || c.Expanded.Height < c.Collapsed.Height {
		return errors.New("expanded size must not be smaller than collapsed size")
	}
	if c.CornerRadius < 0 {
		return fmt.Errorf("corner_radius must not be negative, got %d", c.CornerRadius)
	}
	return nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ModuleSettings returns the private settings table for a module id.
// Returns an empty table if none is configured.
func (c *Config) ModuleSettings(id string) map[string]any {
	if s, ok := c.Modules.Settings[id]; ok {
		return s
	}
	return map[string]any{}
}
