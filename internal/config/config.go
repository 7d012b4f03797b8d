package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/go-theft-craft/voxelcore/internal/world/chunk"
	"github.com/go-theft-craft/voxelcore/internal/world/gen"
)

// ErrUnknownFormat is returned for config files that are neither YAML nor TOML.
var ErrUnknownFormat = errors.New("unknown config format")

// Config holds the driver configuration.
type Config struct {
	Seed              int64  `yaml:"seed" toml:"seed"`
	RenderDistance    int    `yaml:"render_distance" toml:"render_distance"`
	RenderMargin      int    `yaml:"render_margin" toml:"render_margin"`
	MaxRenderDistance int    `yaml:"max_render_distance" toml:"max_render_distance"`
	Workers           int    `yaml:"workers" toml:"workers"` // 0 = one per spare CPU
	FillCap           int    `yaml:"fill_cap" toml:"fill_cap"`
	LogLevel          string `yaml:"log_level" toml:"log_level"`
	MetricsAddr       string `yaml:"metrics_addr" toml:"metrics_addr"` // empty disables /metrics

	// Frames is the number of frames the headless driver runs.
	Frames int `yaml:"frames" toml:"frames"`
	// WalkSpeed is how far the scripted player moves along +X per frame, in
	// blocks.
	WalkSpeed float64 `yaml:"walk_speed" toml:"walk_speed"`

	Terrain gen.Settings `yaml:"terrain" toml:"terrain"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Seed:              1,
		RenderDistance:    8,
		RenderMargin:      2,
		MaxRenderDistance: 32,
		FillCap:           chunk.Volume,
		LogLevel:          "info",
		Frames:            600,
		WalkSpeed:         0.5,
		Terrain:           gen.DefaultSettings(),
	}
}

// withDefaults fills fields a config file left at their zero value.
func (c *Config) withDefaults() {
	d := DefaultConfig()
	if c.RenderDistance == 0 {
		c.RenderDistance = d.RenderDistance
	}
	if c.RenderMargin == 0 {
		c.RenderMargin = d.RenderMargin
	}
	if c.MaxRenderDistance == 0 {
		c.MaxRenderDistance = d.MaxRenderDistance
	}
	if c.FillCap == 0 {
		c.FillCap = d.FillCap
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Frames == 0 {
		c.Frames = d.Frames
	}
	if c.WalkSpeed == 0 {
		c.WalkSpeed = d.WalkSpeed
	}
	if c.Terrain == (gen.Settings{}) {
		c.Terrain = d.Terrain
	}
}

// Validate clamps out-of-range values and rejects unusable ones.
func (c *Config) Validate() error {
	if c.MaxRenderDistance < 1 {
		c.MaxRenderDistance = 1
	}
	c.RenderDistance = max(1, min(c.RenderDistance, c.MaxRenderDistance))
	c.RenderMargin = max(c.RenderMargin, 1)
	c.Workers = max(c.Workers, 0)
	if c.FillCap < 1 {
		return fmt.Errorf("fill cap %d must be positive", c.FillCap)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("parse log level: %w", err)
	}
	return l, nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["seed"] {
		cfg.Seed = fromFile.Seed
	}
	if !explicitFlags["render-distance"] {
		cfg.RenderDistance = fromFile.RenderDistance
	}
	if !explicitFlags["render-margin"] {
		cfg.RenderMargin = fromFile.RenderMargin
	}
	if !explicitFlags["max-render-distance"] {
		cfg.MaxRenderDistance = fromFile.MaxRenderDistance
	}
	if !explicitFlags["workers"] {
		cfg.Workers = fromFile.Workers
	}
	if !explicitFlags["fill-cap"] {
		cfg.FillCap = fromFile.FillCap
	}
	if !explicitFlags["log-level"] {
		cfg.LogLevel = fromFile.LogLevel
	}
	if !explicitFlags["metrics-addr"] {
		cfg.MetricsAddr = fromFile.MetricsAddr
	}
	if !explicitFlags["frames"] {
		cfg.Frames = fromFile.Frames
	}
	if !explicitFlags["walk-speed"] {
		cfg.WalkSpeed = fromFile.WalkSpeed
	}
	cfg.Terrain = fromFile.Terrain
}

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Load reads the YAML or TOML file at path, chosen by extension. Fields the
// file leaves out keep their defaults.
func Load(path string) (*Config, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	switch f {
	case formatYAML:
		err = yaml.Unmarshal(data, cfg)
	case formatTOML:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.withDefaults()
	return cfg, nil
}

// Save writes cfg to path atomically in the format its extension names.
func Save(path string, cfg *Config) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	var data []byte
	switch f {
	case formatYAML:
		data, err = yaml.Marshal(cfg)
	case formatTOML:
		data, err = toml.Marshal(*cfg)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
