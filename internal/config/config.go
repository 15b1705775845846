// Package config loads the JSON settings file of the stereo command.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gogpu/stereo/internal/geom"
	"github.com/gogpu/stereo/internal/parallel"
	"github.com/gogpu/stereo/internal/raster"
)

const defaultConfigPath = "~/.config/stereo/config.json"

// EnvPath names the environment variable that overrides the config location.
const EnvPath = "STEREO_CONFIG"

// Config holds the CLI settings. Fields missing from the file keep their
// defaults.
type Config struct {
	Engine  parallel.Config `json:"engine"`
	Render  Render          `json:"render"`
	Logging Logging         `json:"logging"`
	Paths   Paths           `json:"paths"`
}

type Render struct {
	Filter     geom.Filter   `json:"filter"`
	Interp     raster.Interp `json:"interp"`
	Background string        `json:"background"` // #rrggbb
	Gap        int           `json:"gap"`        // pixels between panes
	Thumbnail  uint          `json:"thumbnail"`  // thumbnail width, 0 disables
}

type Logging struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type Paths struct {
	DefaultOutput string `json:"default_output"`
	DatabasePath  string `json:"database_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Engine: parallel.DefaultConfig(),
		Render: Render{
			Filter:     geom.FilterApproxBilinear,
			Interp:     raster.InterpBilinear,
			Background: "#000000",
			Gap:        8,
			Thumbnail:  320,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Paths: Paths{
			DefaultOutput: "./stereo-out",
			DatabasePath:  "~/.local/share/stereo/stereo.db",
		},
	}
}

// Path returns the config file location: $STEREO_CONFIG or the default,
// with ~ expanded.
func Path() (string, error) {
	p := os.Getenv(EnvPath)
	if p == "" {
		p = defaultConfigPath
	}
	return ExpandUser(p)
}

// Load reads the config file at Path. A missing file yields Default.
func Load() (*Config, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(p)
}

// LoadFile reads the config file at path. A missing file yields Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Validate checks the values that cannot be defaulted at use.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if _, err := ParseColor(c.Render.Background); err != nil {
		return err
	}
	if c.Render.Gap < 0 {
		return fmt.Errorf("config: negative gap %d", c.Render.Gap)
	}
	return nil
}

// BackgroundColor returns the parsed Render.Background, black when invalid.
func (c *Config) BackgroundColor() color.RGBA {
	bg, err := ParseColor(c.Render.Background)
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	return bg
}

// DatabasePath returns Paths.DatabasePath with ~ expanded.
func (c *Config) DatabasePath() (string, error) {
	return ExpandUser(c.Paths.DatabasePath)
}

// ParseColor parses "#rrggbb" or "rrggbb".
func ParseColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("config: invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("config: invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// ExpandUser replaces a leading ~ with the home directory.
func ExpandUser(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}
