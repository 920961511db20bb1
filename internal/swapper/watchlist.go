package swapper

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeJamon/goDCA/internal/storage/database"
)

var watchPrefix = []byte("w/")

func watchKey(pair common.Address) []byte {
	return append(bytes.Clone(watchPrefix), pair[:]...)
}

// WatchList is the set of pairs the dispatcher swaps. When backed by a
// database every change is written before it becomes visible.
type WatchList struct {
	mu    sync.RWMutex
	pairs map[common.Address]struct{}
	db    database.DB
}

// NewWatchList loads the set stored in db. A nil db keeps the set in memory.
func NewWatchList(ctx context.Context, db database.DB) (*WatchList, error) {
	w := &WatchList{pairs: make(map[common.Address]struct{}), db: db}
	if db == nil {
		return w, nil
	}
	it, err := db.Iterator(ctx, watchPrefix, database.PrefixEnd(watchPrefix))
	if err != nil {
		return nil, fmt.Errorf("load watch list: %w", err)
	}
	defer it.Close()
	for it.Next() {
		w.pairs[common.BytesToAddress(it.Key()[len(watchPrefix):])] = struct{}{}
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("load watch list: %w", err)
	}
	return w, nil
}

// Add inserts pairs and returns the ones that were not already present.
func (w *WatchList) Add(ctx context.Context, pairs []common.Address) ([]common.Address, error) {
	return w.update(ctx, pairs, true)
}

// Remove deletes pairs and returns the ones that were present.
func (w *WatchList) Remove(ctx context.Context, pairs []common.Address) ([]common.Address, error) {
	return w.update(ctx, pairs, false)
}

func (w *WatchList) update(ctx context.Context, pairs []common.Address, add bool) ([]common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		changed []common.Address
		ops     []database.BatchOperation
		seen    = make(map[common.Address]struct{}, len(pairs))
	)
	for _, p := range pairs {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if _, present := w.pairs[p]; present == add {
			continue
		}
		changed = append(changed, p)
		if add {
			ops = append(ops, database.BatchOperation{Type: database.BatchPut, Key: watchKey(p), Value: []byte{1}})
		} else {
			ops = append(ops, database.BatchOperation{Type: database.BatchDelete, Key: watchKey(p)})
		}
	}
	if len(changed) == 0 {
		return nil, nil
	}
	if w.db != nil {
		if err := w.db.Batch(ctx, ops); err != nil {
			return nil, fmt.Errorf("persist watch list: %w", err)
		}
	}
	for _, p := range changed {
		if add {
			w.pairs[p] = struct{}{}
		} else {
			delete(w.pairs, p)
		}
	}
	return changed, nil
}

// Contains reports whether pair is watched.
func (w *WatchList) Contains(pair common.Address) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.pairs[pair]
	return ok
}

// List returns the watched pairs in address order.
func (w *WatchList) List() []common.Address {
	w.mu.RLock()
	out := make([]common.Address, 0, len(w.pairs))
	for p := range w.pairs {
		out = append(out, p)
	}
	w.mu.RUnlock()
	slices.SortFunc(out, func(a, b common.Address) int { return bytes.Compare(a[:], b[:]) })
	return out
}

// Len returns the number of watched pairs.
func (w *WatchList) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.pairs)
}
