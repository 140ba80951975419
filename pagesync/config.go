package pagesync

import (
	"github.com/hazyhaar/folio/pagesync/internal/config"
)

// Config is the top-level engine configuration. Re-exported from internal.
type Config = config.Config

// PageConfig sets the page geometry.
type PageConfig = config.PageConfig

// PersistConfig controls debounced persistence.
type PersistConfig = config.PersistConfig

// StorageConfig locates the document database.
type StorageConfig = config.StorageConfig

// HTTPConfig controls the status API listener.
type HTTPConfig = config.HTTPConfig

// EngineConfig tunes control-loop scheduling.
type EngineConfig = config.EngineConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return config.Default()
}
