// Package filter implements the per-table Bloom filter used to skip reads
// of user keys known not to be present (spec §4.2, §6 bloom_false_positive).
// It follows the FastLocalBloom layout: cache-line-local probing, so every
// probe for a key touches a single 64-byte cache line instead of scattering
// across the whole filter.
//
// Reference: aalhour/rockyardkv internal/filter/bloom.go, adapted to hash
// with github.com/zeebo/xxh3 directly rather than through a local wrapper.
package filter

import "github.com/zeebo/xxh3"

const (
	// CacheLineSize is the size of a CPU cache line in bytes.
	CacheLineSize = 64
	// CacheLineBits is the number of bits in a cache line.
	CacheLineBits = CacheLineSize * 8

	// MetadataLen is the number of metadata bytes at the end of the filter.
	MetadataLen = 5

	newBloomMarker       = byte(0xFF)
	fastLocalBloomMarker = byte(0x00)
)

// Builder accumulates user keys and produces a Bloom filter block.
type Builder struct {
	bitsPerKey int
	hashes     []uint64
}

// NewBuilder creates a Builder targeting bitsPerKey bits of filter per key
// added (10 bits/key gives roughly a 1% false positive rate).
func NewBuilder(bitsPerKey int) *Builder {
	if bitsPerKey < 1 {
		bitsPerKey = 1
	}
	return &Builder{bitsPerKey: bitsPerKey, hashes: make([]uint64, 0, 256)}
}

// AddKey adds a user key to the filter under construction.
func (b *Builder) AddKey(userKey []byte) {
	b.hashes = append(b.hashes, xxh3.Hash(userKey))
}

// NumKeys returns the number of keys added since the last Reset.
func (b *Builder) NumKeys() int {
	return len(b.hashes)
}

// EstimatedSize returns the filter's size in bytes if Finish were called
// now, or 0 when no key has been added (Finish then returns a 5-byte
// metadata-only filter).
func (b *Builder) EstimatedSize() int {
	if len(b.hashes) == 0 {
		return 0
	}
	return calculateSpace(len(b.hashes), b.bitsPerKey)
}

// Finish builds the filter block, including its metadata suffix, and
// resets the builder for reuse.
func (b *Builder) Finish() []byte {
	numEntries := len(b.hashes)
	if numEntries == 0 {
		return []byte{newBloomMarker, fastLocalBloomMarker, 0, 0, 0}
	}

	lenWithMetadata := calculateSpace(numEntries, b.bitsPerKey)
	filterLen := lenWithMetadata - MetadataLen
	data := make([]byte, lenWithMetadata)

	numProbes := chooseNumProbes(b.bitsPerKey * 1000)
	for _, h := range b.hashes {
		addHash(h, uint32(filterLen), numProbes, data)
	}

	data[filterLen+0] = newBloomMarker
	data[filterLen+1] = fastLocalBloomMarker
	data[filterLen+2] = byte(numProbes)
	data[filterLen+3] = 0
	data[filterLen+4] = 0

	b.hashes = b.hashes[:0]
	return data
}

// Reset clears the builder without building a filter.
func (b *Builder) Reset() {
	b.hashes = b.hashes[:0]
}

// Reader answers membership queries against an encoded filter block.
type Reader struct {
	data      []byte
	filterLen uint32
	numProbes int
}

// NewReader parses an encoded filter block. It returns nil if data is too
// short or carries a marker this package does not understand.
func NewReader(data []byte) *Reader {
	if len(data) < MetadataLen {
		return nil
	}
	filterLen := len(data) - MetadataLen
	if data[filterLen] != newBloomMarker || data[filterLen+1] != fastLocalBloomMarker {
		return nil
	}
	numProbes := int(data[filterLen+2])
	if numProbes == 0 {
		return &Reader{data: data, filterLen: 0, numProbes: 0}
	}
	return &Reader{data: data, filterLen: uint32(filterLen), numProbes: numProbes}
}

// MayContain reports whether userKey may be present. false is a definite
// negative; true may be a false positive.
func (r *Reader) MayContain(userKey []byte) bool {
	if r == nil || r.filterLen == 0 || r.numProbes == 0 {
		return false
	}
	return hashMayMatch(xxh3.Hash(userKey), r.filterLen, r.numProbes, r.data)
}

func calculateSpace(numEntries, bitsPerKey int) int {
	totalBits := numEntries * bitsPerKey
	numCacheLines := (totalBits + CacheLineBits - 1) / CacheLineBits
	if numCacheLines == 0 {
		numCacheLines = 1
	}
	return numCacheLines*CacheLineSize + MetadataLen
}

// chooseNumProbes picks the probe count minimizing false positives for a
// given bits-per-key budget (millibitsPerKey = bitsPerKey * 1000).
func chooseNumProbes(millibitsPerKey int) int {
	switch {
	case millibitsPerKey <= 2080:
		return 1
	case millibitsPerKey <= 3580:
		return 2
	case millibitsPerKey <= 5100:
		return 3
	case millibitsPerKey <= 6640:
		return 4
	case millibitsPerKey <= 8300:
		return 5
	case millibitsPerKey <= 10070:
		return 6
	case millibitsPerKey <= 11720:
		return 7
	case millibitsPerKey <= 14001:
		return 8
	case millibitsPerKey <= 16050:
		return 9
	case millibitsPerKey <= 18300:
		return 10
	case millibitsPerKey <= 22001:
		return 11
	case millibitsPerKey <= 25501:
		return 12
	case millibitsPerKey > 50000:
		return 24
	default:
		return (millibitsPerKey-1)/2000 - 1
	}
}

func fastRange32(h, n uint32) uint32 {
	return uint32((uint64(h) * uint64(n)) >> 32)
}

func addHash(hash uint64, lenBytes uint32, numProbes int, data []byte) {
	h1 := uint32(hash)
	h2 := uint32(hash >> 32)
	numCacheLines := lenBytes >> 6
	cacheLineOffset := fastRange32(h1, numCacheLines) << 6
	addHashPrepared(h2, numProbes, data[cacheLineOffset:cacheLineOffset+CacheLineSize])
}

func addHashPrepared(h2 uint32, numProbes int, cacheLine []byte) {
	h := h2
	for range numProbes {
		bitpos := h >> (32 - 9)
		cacheLine[bitpos>>3] |= 1 << (bitpos & 7)
		h *= 0x9e3779b9
	}
}

func hashMayMatch(hash uint64, lenBytes uint32, numProbes int, data []byte) bool {
	h1 := uint32(hash)
	h2 := uint32(hash >> 32)
	numCacheLines := lenBytes >> 6
	cacheLineOffset := fastRange32(h1, numCacheLines) << 6
	return hashMayMatchPrepared(h2, numProbes, data[cacheLineOffset:cacheLineOffset+CacheLineSize])
}

func hashMayMatchPrepared(h2 uint32, numProbes int, cacheLine []byte) bool {
	h := h2
	for range numProbes {
		bitpos := h >> (32 - 9)
		if (cacheLine[bitpos>>3] & (1 << (bitpos & 7))) == 0 {
			return false
		}
		h *= 0x9e3779b9
	}
	return true
}
