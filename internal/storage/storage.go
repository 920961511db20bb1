// Package storage opens the key-value backends configured under [storage].
package storage

import (
	"fmt"

	"github.com/LeJamon/goDCA/internal/storage/database"
	"github.com/LeJamon/goDCA/internal/storage/database/bbolt"
	"github.com/LeJamon/goDCA/internal/storage/database/pebble"
)

// Backend names accepted by OpenManager.
const (
	BackendMemory = "memory"
	BackendPebble = "pebble"
	BackendBbolt  = "bbolt"
)

// OpenManager returns the database manager for backend rooted at path.
// The memory backend has no manager and returns nil.
func OpenManager(backend, path string) (database.Manager, error) {
	switch backend {
	case BackendMemory, "":
		return nil, nil
	case BackendPebble:
		return pebble.NewManager(path), nil
	case BackendBbolt:
		return bbolt.NewManager(path), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
