package ledger

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
)

// Action represents the type of modification to a ledger entry
type Action int

const (
	// ActionCache means the entry was read but not modified
	ActionCache Action = iota
	// ActionInsert means a new entry was created
	ActionInsert
	// ActionModify means an existing entry was modified
	ActionModify
	// ActionErase means an entry was deleted
	ActionErase
)

// TrackedEntry represents a ledger entry being tracked for changes
type TrackedEntry struct {
	Action   Action
	Type     entry.Type
	Original []byte // Original state (nil for inserts)
	Current  []byte // Current state (state before deletion for erases)
}

// AffectedNode describes one entry changed by a transaction.
type AffectedNode struct {
	NodeType  string      `json:"nodeType"` // CreatedNode, ModifiedNode or DeletedNode
	EntryType string      `json:"entryType"`
	Key       common.Hash `json:"key"`
}

// Metadata lists the entries a committed transaction changed, in key order.
type Metadata struct {
	AffectedNodes []AffectedNode `json:"affectedNodes"`
}

// StateTable wraps a View and tracks all modifications. Nothing reaches the
// base until Apply; dropping the table discards every change. A StateTable is
// itself a View, so tables nest.
type StateTable struct {
	base  View
	items map[common.Hash]*TrackedEntry
}

// NewStateTable creates a new StateTable wrapping the given base view
func NewStateTable(base View) *StateTable {
	return &StateTable{
		base:  base,
		items: make(map[common.Hash]*TrackedEntry),
	}
}

// Read reads a ledger entry, tracking it as cached
func (t *StateTable) Read(k keylet.Keylet) ([]byte, error) {
	if tracked, exists := t.items[k.Key]; exists {
		if tracked.Action == ActionErase {
			return nil, nil
		}
		return bytes.Clone(tracked.Current), nil
	}

	data, err := t.base.Read(k)
	if err != nil {
		return nil, err
	}

	// Only track entries that exist in the base
	if data != nil {
		t.items[k.Key] = &TrackedEntry{
			Action:   ActionCache,
			Type:     k.Type,
			Original: data,
			Current:  data,
		}
	}

	return bytes.Clone(data), nil
}

// Exists checks if an entry exists
func (t *StateTable) Exists(k keylet.Keylet) (bool, error) {
	if tracked, exists := t.items[k.Key]; exists {
		return tracked.Action != ActionErase, nil
	}
	return t.base.Exists(k)
}

// Insert adds a new entry
func (t *StateTable) Insert(k keylet.Keylet, data []byte) error {
	if tracked, exists := t.items[k.Key]; exists {
		if tracked.Action != ActionErase {
			return fmt.Errorf("insert %s %s: %w", k.Type, k.Key.Hex(), ErrEntryExists)
		}
		// Re-inserting a deleted entry becomes a modify
		tracked.Action = ActionModify
		tracked.Current = bytes.Clone(data)
		return nil
	}

	exists, err := t.base.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("insert %s %s: %w", k.Type, k.Key.Hex(), ErrEntryExists)
	}

	t.items[k.Key] = &TrackedEntry{
		Action:  ActionInsert,
		Type:    k.Type,
		Current: bytes.Clone(data),
	}
	return nil
}

// Update modifies an existing entry
func (t *StateTable) Update(k keylet.Keylet, data []byte) error {
	if tracked, exists := t.items[k.Key]; exists {
		if tracked.Action == ActionErase {
			return fmt.Errorf("update %s %s: %w", k.Type, k.Key.Hex(), ErrEntryNotFound)
		}
		if tracked.Action == ActionCache {
			tracked.Action = ActionModify
		}
		// For insert, keep it as insert with new data
		tracked.Current = bytes.Clone(data)
		return nil
	}

	original, err := t.base.Read(k)
	if err != nil {
		return err
	}
	if original == nil {
		return fmt.Errorf("update %s %s: %w", k.Type, k.Key.Hex(), ErrEntryNotFound)
	}

	t.items[k.Key] = &TrackedEntry{
		Action:   ActionModify,
		Type:     k.Type,
		Original: original,
		Current:  bytes.Clone(data),
	}
	return nil
}

// Erase removes an entry
func (t *StateTable) Erase(k keylet.Keylet) error {
	if tracked, exists := t.items[k.Key]; exists {
		if tracked.Action == ActionErase {
			return fmt.Errorf("erase %s %s: %w", k.Type, k.Key.Hex(), ErrEntryNotFound)
		}
		if tracked.Action == ActionInsert {
			// Inserting then deleting = no change
			delete(t.items, k.Key)
			return nil
		}
		tracked.Action = ActionErase
		return nil
	}

	original, err := t.base.Read(k)
	if err != nil {
		return err
	}
	if original == nil {
		return fmt.Errorf("erase %s %s: %w", k.Type, k.Key.Hex(), ErrEntryNotFound)
	}

	t.items[k.Key] = &TrackedEntry{
		Action:   ActionErase,
		Type:     k.Type,
		Original: original,
		Current:  original,
	}
	return nil
}

// ForEach visits the base entries with this table's changes laid over them.
func (t *StateTable) ForEach(fn func(key common.Hash, data []byte) bool) error {
	stopped := false
	err := t.base.ForEach(func(key common.Hash, data []byte) bool {
		if tracked, exists := t.items[key]; exists {
			if tracked.Action == ActionErase {
				return true
			}
			data = tracked.Current
		}
		if !fn(key, data) {
			stopped = true
			return false
		}
		return true
	})
	if err != nil || stopped {
		return err
	}
	for _, key := range t.sortedKeys() {
		if tracked := t.items[key]; tracked.Action == ActionInsert {
			if !fn(key, bytes.Clone(tracked.Current)) {
				return nil
			}
		}
	}
	return nil
}

// HasChanges reports whether any entry was inserted, modified or erased.
func (t *StateTable) HasChanges() bool {
	for _, tracked := range t.items {
		if tracked.Action != ActionCache {
			return true
		}
	}
	return false
}

// Apply commits all changes to the base view and returns generated metadata.
// A base implementing Committer receives every change in one call.
func (t *StateTable) Apply() (*Metadata, error) {
	metadata := &Metadata{
		AffectedNodes: make([]AffectedNode, 0),
	}
	committer, batched := t.base.(Committer)
	var changes []Change

	for _, key := range t.sortedKeys() {
		tracked := t.items[key]
		k := keylet.Keylet{Type: tracked.Type, Key: key}

		var (
			nodeType string
			err      error
		)
		switch tracked.Action {
		case ActionCache:
			continue

		case ActionInsert:
			nodeType = "CreatedNode"
			if batched {
				changes = append(changes, Change{Keylet: k, Data: tracked.Current})
			} else {
				err = t.base.Insert(k, tracked.Current)
			}

		case ActionModify:
			// Skip if no actual change
			if bytes.Equal(tracked.Original, tracked.Current) {
				continue
			}
			nodeType = "ModifiedNode"
			if batched {
				changes = append(changes, Change{Keylet: k, Data: tracked.Current})
			} else {
				err = t.base.Update(k, tracked.Current)
			}

		case ActionErase:
			nodeType = "DeletedNode"
			if batched {
				changes = append(changes, Change{Keylet: k})
			} else {
				err = t.base.Erase(k)
			}
		}
		if err != nil {
			return nil, err
		}

		metadata.AffectedNodes = append(metadata.AffectedNodes, AffectedNode{
			NodeType:  nodeType,
			EntryType: tracked.Type.String(),
			Key:       key,
		})
	}

	if batched && len(changes) > 0 {
		if err := committer.Commit(changes); err != nil {
			return nil, err
		}
	}
	t.items = make(map[common.Hash]*TrackedEntry)
	return metadata, nil
}

func (t *StateTable) sortedKeys() []common.Hash {
	keys := make([]common.Hash, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })
	return keys
}
