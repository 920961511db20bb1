package compression

import (
	"bytes"
	"fmt"

	"github.com/pierrec/lz4"
)

const (
	noneID byte = 0
	lz4ID  byte = 1
)

// NoCompressor implements a pass-through compressor that doesn't compress data.
type NoCompressor struct{}

func (c *NoCompressor) Name() string { return "none" }

func (c *NoCompressor) ID() byte { return noneID }

// Compress returns a copy of data.
func (c *NoCompressor) Compress(data []byte) ([]byte, error) {
	return bytes.Clone(data), nil
}

// Decompress returns a copy of data.
func (c *NoCompressor) Decompress(data []byte, _ int) ([]byte, error) {
	return bytes.Clone(data), nil
}

// LZ4Compressor implements LZ4 block compression.
type LZ4Compressor struct{}

func (c *LZ4Compressor) Name() string { return "lz4" }

func (c *LZ4Compressor) ID() byte { return lz4ID }

// Compress returns nil when data does not compress.
func (c *LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return compressed[:n], nil
}

func (c *LZ4Compressor) Decompress(data []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(data, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompression failed: %w", err)
	}
	return out[:n], nil
}
