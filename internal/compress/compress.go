// Package compress implements the block compression codecs a table builder
// may apply to a block body before it is written (spec §6, supplemented:
// the spec only requires "compressed-or-raw", the codec choice itself is
// left to the implementation). Each block on disk is tagged with a 1-byte
// Algorithm so a reader never needs to know which codec wrote it.
//
// Reference: aalhour/rockyardkv internal/compression/compression.go, trimmed
// to the codecs Hummock actually exposes.
package compress

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a block compression codec. It is stored as a 1-byte
// tag alongside each block (spec §6 compression_algo).
type Algorithm uint8

const (
	// None stores the block body uncompressed.
	None Algorithm = 0
	// Snappy compresses with Google Snappy.
	Snappy Algorithm = 1
	// LZ4 compresses with raw LZ4 block format.
	LZ4 Algorithm = 2
	// Zstd compresses with Zstandard.
	Zstd Algorithm = 3
)

func (a Algorithm) String() string {
	switch a {
	case None:
		return "None"
	case Snappy:
		return "Snappy"
	case LZ4:
		return "LZ4"
	case Zstd:
		return "Zstd"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case None, Snappy, LZ4, Zstd:
		return true
	default:
		return false
	}
}

// Compress compresses data with the given algorithm.
func Compress(a Algorithm, data []byte) ([]byte, error) {
	switch a {
	case None:
		return data, nil
	case Snappy:
		return snappy.Encode(nil, data), nil
	case LZ4:
		return compressLZ4(data)
	case Zstd:
		return compressZstd(data)
	default:
		return nil, fmt.Errorf("compress: unsupported algorithm %s", a)
	}
}

// Decompress decompresses data that was compressed with a. expectedSize, if
// nonzero, is the known uncompressed size and lets LZ4 skip its
// buffer-growth retry loop.
func Decompress(a Algorithm, data []byte, expectedSize int) ([]byte, error) {
	switch a {
	case None:
		return data, nil
	case Snappy:
		return snappy.Decode(nil, data)
	case LZ4:
		return decompressLZ4(data, expectedSize)
	case Zstd:
		return decompressZstd(data)
	default:
		return nil, fmt.Errorf("compress: unsupported algorithm %s", a)
	}
}

// compressLZ4 compresses data using LZ4's raw block format, not the LZ4
// frame format (no magic bytes or frame headers) -- the block trailer
// already records the compressed length.
func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	var ht [1 << 16]int
	n, err := lz4.CompressBlock(data, dst, ht[:])
	if err != nil {
		return nil, fmt.Errorf("lz4 compress block: %w", err)
	}
	if n == 0 {
		// Incompressible: caller should fall back to None on EstimatedSize
		// heuristics, but a zero-length result is never valid to store.
		return nil, fmt.Errorf("lz4 compress block: incompressible input")
	}
	return dst[:n], nil
}

func decompressLZ4(data []byte, expectedSize int) ([]byte, error) {
	if expectedSize > 0 {
		dst := make([]byte, expectedSize)
		n, err := lz4.UncompressBlock(data, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4 uncompress block: %w", err)
		}
		return dst[:n], nil
	}

	bufSize := max(len(data)*4, 256)
	for range 10 {
		dst := make([]byte, bufSize)
		n, err := lz4.UncompressBlock(data, dst)
		if err == nil {
			return dst[:n], nil
		}
		bufSize *= 2
	}
	return nil, fmt.Errorf("lz4 uncompress block: buffer too small after retries")
}

func compressZstd(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer decoder.Close()
	return decoder.DecodeAll(data, nil)
}
