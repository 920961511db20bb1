package config

import (
	"fmt"
	"slices"

	"github.com/LeJamon/goDCA/internal/storage"
)

// StorageConfig represents the [storage] section
// Configures the key-value store holding the ledger state
type StorageConfig struct {
	Backend     string `toml:"backend" mapstructure:"backend"`
	Path        string `toml:"path" mapstructure:"path"`
	Compression string `toml:"compression" mapstructure:"compression"`
	CacheSize   int    `toml:"cache_size" mapstructure:"cache_size"`
}

// IsPersistent reports whether ledger state survives a restart.
func (s *StorageConfig) IsPersistent() bool {
	return s.Backend != storage.BackendMemory && s.Backend != ""
}

// Validate performs validation on the storage configuration
func (s *StorageConfig) Validate() error {
	validBackends := []string{storage.BackendMemory, storage.BackendPebble, storage.BackendBbolt}
	if !slices.Contains(validBackends, s.Backend) {
		return fmt.Errorf("invalid storage backend: %s (valid options: memory, pebble, bbolt)", s.Backend)
	}
	if s.IsPersistent() && s.Path == "" {
		return fmt.Errorf("storage path is required for backend %s", s.Backend)
	}
	switch s.Compression {
	case "lz4", "none":
	default:
		return fmt.Errorf("invalid storage compression: %s (valid options: lz4, none)", s.Compression)
	}
	if s.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", s.CacheSize)
	}
	return nil
}
