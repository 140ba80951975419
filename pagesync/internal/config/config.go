// Package config handles folio configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/folio/geom"
)

// Config is the top-level folio configuration.
type Config struct {
	Page    PageConfig    `yaml:"page"`
	Persist PersistConfig `yaml:"persist"`
	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
	Engine  EngineConfig  `yaml:"engine"`
}

// PageConfig fixes the page-band geometry. Defaults are A4 portrait at
// 96 dpi with a 50 px gap.
type PageConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Gap    float64 `yaml:"gap"`
}

// PersistConfig controls the save debounce.
type PersistConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig controls the collaborator API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// EngineConfig tunes the control loop.
type EngineConfig struct {
	// FrameDelay approximates one rendering frame for deferred
	// re-measurement of freshly inserted elements.
	FrameDelay time.Duration `yaml:"frame_delay"`
}

// PageSize converts the page section into the geometry type used
// throughout the engine.
func (c *Config) PageSize() geom.PageSize {
	return geom.PageSize{W: c.Page.Width, H: c.Page.Height, Gap: c.Page.Gap}
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero fields.
func (c *Config) ApplyDefaults() {
	if c.Page.Width <= 0 {
		c.Page.Width = 794
	}
	if c.Page.Height <= 0 {
		c.Page.Height = 1123
	}
	if c.Page.Gap <= 0 {
		c.Page.Gap = 50
	}
	if c.Persist.Debounce <= 0 {
		c.Persist.Debounce = 1500 * time.Millisecond
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "folio.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:7419"
	}
	if c.Engine.FrameDelay <= 0 {
		c.Engine.FrameDelay = 16 * time.Millisecond
	}
}
