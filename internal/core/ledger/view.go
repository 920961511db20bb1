package ledger

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
)

var (
	// ErrEntryExists is returned when inserting over an existing entry
	ErrEntryExists = errors.New("entry already exists")

	// ErrEntryNotFound is returned when updating or erasing a missing entry
	ErrEntryNotFound = errors.New("entry not found")
)

// View is the read-write interface over ledger state. Read returns nil data
// without error when the entry does not exist.
type View interface {
	// Read reads a ledger entry
	Read(k keylet.Keylet) ([]byte, error)

	// Exists checks if an entry exists
	Exists(k keylet.Keylet) (bool, error)

	// Insert adds a new entry
	Insert(k keylet.Keylet, data []byte) error

	// Update modifies an existing entry
	Update(k keylet.Keylet, data []byte) error

	// Erase removes an entry
	Erase(k keylet.Keylet) error

	// ForEach iterates over all state entries
	// If fn returns false, iteration stops early
	ForEach(fn func(key common.Hash, data []byte) bool) error
}

// Change is one entry written by a commit. Nil Data erases the entry.
type Change struct {
	Keylet keylet.Keylet
	Data   []byte
}

// Committer is implemented by views that apply a set of changes
// atomically, such as a persistent store.
type Committer interface {
	Commit(changes []Change) error
}
