package ledger

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
)

// MemoryView is a map-backed View. It is the base of test environments and
// of the in-memory storage backend.
type MemoryView struct {
	mu      sync.RWMutex
	entries map[common.Hash][]byte
}

// NewMemoryView creates an empty MemoryView.
func NewMemoryView() *MemoryView {
	return &MemoryView{entries: make(map[common.Hash][]byte)}
}

func (m *MemoryView) Read(k keylet.Keylet) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.entries[k.Key]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(data), nil
}

func (m *MemoryView) Exists(k keylet.Keylet) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[k.Key]
	return ok, nil
}

func (m *MemoryView) Insert(k keylet.Keylet, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[k.Key]; ok {
		return ErrEntryExists
	}
	m.entries[k.Key] = bytes.Clone(data)
	return nil
}

func (m *MemoryView) Update(k keylet.Keylet, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[k.Key]; !ok {
		return ErrEntryNotFound
	}
	m.entries[k.Key] = bytes.Clone(data)
	return nil
}

func (m *MemoryView) Erase(k keylet.Keylet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[k.Key]; !ok {
		return ErrEntryNotFound
	}
	delete(m.entries, k.Key)
	return nil
}

// ForEach visits entries in key order.
func (m *MemoryView) ForEach(fn func(key common.Hash, data []byte) bool) error {
	m.mu.RLock()
	keys := make([]common.Hash, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	m.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })
	for _, k := range keys {
		m.mu.RLock()
		data, ok := m.entries[k]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		if !fn(k, bytes.Clone(data)) {
			return nil
		}
	}
	return nil
}

// Len returns the number of entries.
func (m *MemoryView) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
