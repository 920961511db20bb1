// Package compression frames stored values with the algorithm that wrote
// them, so a store can change its compressor without rewriting old data.
package compression

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrCorrupt is returned when a framed value cannot be decoded.
var ErrCorrupt = errors.New("corrupt compressed value")

// Compressor defines the interface for compression algorithms.
type Compressor interface {
	// Name returns the name of the compression algorithm.
	Name() string

	// ID is the tag written in front of every value it compresses.
	ID() byte

	// Compress compresses the input data.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data that expands to size bytes.
	Decompress(data []byte, size int) ([]byte, error)
}

// Factory is a function that creates a new compressor instance.
type Factory func() Compressor

var (
	mu          sync.RWMutex
	compressors = make(map[string]Factory)
	byID        = make(map[byte]Factory)
)

// Register registers a compressor factory with the given name.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	compressors[name] = factory
	byID[factory().ID()] = factory
}

// Get returns a new compressor instance for the given name.
func Get(name string) (Compressor, error) {
	mu.RLock()
	factory, ok := compressors[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown compressor: %s", name)
	}
	return factory(), nil
}

// Available returns the registered compressor names in order.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(compressors))
	for name := range compressors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsAvailable checks if a compressor with the given name is available.
func IsAvailable(name string) bool {
	mu.RLock()
	_, ok := compressors[name]
	mu.RUnlock()
	return ok
}

// Encode compresses data with c and frames it as
// [id][uvarint size][payload]. Data c cannot shrink is stored raw.
func Encode(c Compressor, data []byte) ([]byte, error) {
	payload, err := c.Compress(data)
	if err != nil {
		return nil, err
	}
	id := c.ID()
	if payload == nil || len(payload) >= len(data) {
		id, payload = noneID, data
	}
	out := make([]byte, 1, 1+binary.MaxVarintLen64+len(payload))
	out[0] = id
	out = binary.AppendUvarint(out, uint64(len(data)))
	return append(out, payload...), nil
}

// Decode reverses Encode with whichever compressor wrote the value.
func Decode(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, ErrCorrupt
	}
	mu.RLock()
	factory, ok := byID[framed[0]]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown compressor %d", ErrCorrupt, framed[0])
	}
	size, n := binary.Uvarint(framed[1:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad size", ErrCorrupt)
	}
	data, err := factory().Decompress(framed[1+n:], int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(data) != int(size) {
		return nil, fmt.Errorf("%w: expanded to %d bytes, want %d", ErrCorrupt, len(data), size)
	}
	return data, nil
}

func init() {
	Register("none", func() Compressor { return &NoCompressor{} })
	Register("lz4", func() Compressor { return &LZ4Compressor{} })
}
