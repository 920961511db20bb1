// Package ledgerstore persists ledger state in a key-value database. It is
// the base view the engine commits into when a storage backend is
// configured.
package ledgerstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
	"github.com/LeJamon/goDCA/internal/storage/compression"
	"github.com/LeJamon/goDCA/internal/storage/database"
)

// stateprefix namespaces ledger entries inside the database.
var stateprefix = []byte("s/")

// Config holds configuration for a Store
type Config struct {
	// Compression names the compressor for new writes ("lz4" or "none")
	Compression string

	// CacheSize is the number of decoded entries kept in memory
	CacheSize int
}

// DefaultConfig returns lz4 compression and a 4096 entry cache.
func DefaultConfig() Config {
	return Config{
		Compression: "lz4",
		CacheSize:   4096,
	}
}

// Store is a ledger.View and ledger.Committer over a database.DB.
type Store struct {
	mu sync.RWMutex

	db         database.DB
	compressor compression.Compressor
	cache      *lru.Cache[common.Hash, []byte]
	log        *slog.Logger
}

// New creates a Store over db.
func New(db database.DB, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Compression == "" {
		cfg.Compression = "none"
	}
	c, err := compression.Get(cfg.Compression)
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	cache, err := lru.New[common.Hash, []byte](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:         db,
		compressor: c,
		cache:      cache,
		log:        logger.With("component", "ledgerstore"),
	}, nil
}

func stateKey(key common.Hash) []byte {
	return append(bytes.Clone(stateprefix), key[:]...)
}

// read returns the decoded bytes of key, or nil when absent.
func (s *Store) read(key common.Hash) ([]byte, error) {
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}
	raw, err := s.db.Read(context.Background(), stateKey(key))
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	data, err := compression.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	s.cache.Add(key, data)
	return data, nil
}

func (s *Store) encode(data []byte) ([]byte, error) {
	return compression.Encode(s.compressor, data)
}

// Read reads a ledger entry
func (s *Store) Read(k keylet.Keylet) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := s.read(k.Key)
	if err != nil || data == nil {
		return nil, err
	}
	return bytes.Clone(data), nil
}

// Exists checks if an entry exists
func (s *Store) Exists(k keylet.Keylet) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := s.read(k.Key)
	return data != nil, err
}

func (s *Store) write(k keylet.Keylet, data []byte, mustExist bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.read(k.Key)
	if err != nil {
		return err
	}
	switch {
	case mustExist && current == nil:
		return ledger.ErrEntryNotFound
	case !mustExist && current != nil:
		return ledger.ErrEntryExists
	}
	raw, err := s.encode(data)
	if err != nil {
		return err
	}
	if err := s.db.Write(context.Background(), stateKey(k.Key), raw); err != nil {
		return fmt.Errorf("write %s: %w", k.Key, err)
	}
	s.cache.Add(k.Key, bytes.Clone(data))
	return nil
}

// Insert adds a new entry
func (s *Store) Insert(k keylet.Keylet, data []byte) error {
	return s.write(k, data, false)
}

// Update modifies an existing entry
func (s *Store) Update(k keylet.Keylet, data []byte) error {
	return s.write(k, data, true)
}

// Erase removes an entry
func (s *Store) Erase(k keylet.Keylet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.read(k.Key)
	if err != nil {
		return err
	}
	if current == nil {
		return ledger.ErrEntryNotFound
	}
	if err := s.db.Delete(context.Background(), stateKey(k.Key)); err != nil {
		return fmt.Errorf("delete %s: %w", k.Key, err)
	}
	s.cache.Remove(k.Key)
	return nil
}

// Commit writes every change in one database batch.
func (s *Store) Commit(changes []ledger.Change) error {
	ops := make([]database.BatchOperation, 0, len(changes))
	for _, c := range changes {
		if c.Data == nil {
			ops = append(ops, database.BatchOperation{Type: database.BatchDelete, Key: stateKey(c.Keylet.Key)})
			continue
		}
		raw, err := s.encode(c.Data)
		if err != nil {
			return err
		}
		ops = append(ops, database.BatchOperation{Type: database.BatchPut, Key: stateKey(c.Keylet.Key), Value: raw})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Batch(context.Background(), ops); err != nil {
		return fmt.Errorf("commit %d changes: %w", len(changes), err)
	}
	for _, c := range changes {
		if c.Data == nil {
			s.cache.Remove(c.Keylet.Key)
		} else {
			s.cache.Add(c.Keylet.Key, bytes.Clone(c.Data))
		}
	}
	s.log.Debug("committed", "changes", len(changes))
	return nil
}

// ForEach iterates over all state entries in key order
func (s *Store) ForEach(fn func(key common.Hash, data []byte) bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, err := s.db.Iterator(context.Background(), stateprefix, database.PrefixEnd(stateprefix))
	if err != nil {
		return err
	}
	defer it.Close()
	for it.Next() {
		key := common.BytesToHash(it.Key()[len(stateprefix):])
		data, err := compression.Decode(it.Value())
		if err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		if !fn(key, data) {
			break
		}
	}
	return it.Error()
}

// CacheLen returns the number of cached entries.
func (s *Store) CacheLen() int { return s.cache.Len() }
