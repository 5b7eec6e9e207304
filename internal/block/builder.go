package block

import "github.com/vernedeng/risingwave/internal/encoding"

// DefaultRestartInterval is the number of entries between restart points
// when the caller does not override it (spec §6 block_restart_interval).
const DefaultRestartInterval = 16

// Builder assembles a block from full-key/value pairs added in ascending
// full-key order, prefix-compressing each key against the previous one
// except at restart points, where the whole key is stored.
//
// Entry format:
//
//	shared_bytes:   varint32
//	unshared_bytes: varint32
//	value_length:   varint32
//	key_delta:      char[unshared_bytes]
//	value:          char[value_length]
//
// Block format:
//
//	[entry]...
//	[restart offset: uint32 LE]...
//	[restart count: uint32 LE]
type Builder struct {
	buffer          []byte
	restarts        []uint32
	counter         int
	restartInterval int
	lastKey         []byte
	finished        bool
}

// NewBuilder creates a Builder with the given restart interval. A new
// restart point (whole key, no prefix compression) is written every
// restartInterval entries.
func NewBuilder(restartInterval int) *Builder {
	if restartInterval < 1 {
		restartInterval = 1
	}
	return &Builder{
		buffer:          make([]byte, 0, 4096),
		restartInterval: restartInterval,
		restarts:        []uint32{0},
	}
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() {
	b.buffer = b.buffer[:0]
	b.restarts = b.restarts[:1]
	b.restarts[0] = 0
	b.counter = 0
	b.lastKey = b.lastKey[:0]
	b.finished = false
}

// Add adds a full-key/value entry to the block.
// REQUIRES: key is strictly greater than any key previously added since
// the last Reset, and Finish has not been called.
func (b *Builder) Add(key, value []byte) {
	if b.finished {
		panic("block: Add called after Finish")
	}

	shared := 0
	if b.counter < b.restartInterval {
		shared = sharedPrefixLength(b.lastKey, key)
	} else {
		b.restarts = append(b.restarts, uint32(len(b.buffer)))
		b.counter = 0
	}
	unshared := len(key) - shared

	b.buffer = encoding.AppendVarint32(b.buffer, uint32(shared))
	b.buffer = encoding.AppendVarint32(b.buffer, uint32(unshared))
	b.buffer = encoding.AppendVarint32(b.buffer, uint32(len(value)))
	b.buffer = append(b.buffer, key[shared:]...)
	b.buffer = append(b.buffer, value...)

	b.lastKey = append(b.lastKey[:0], key...)
	b.counter++
}

// EstimatedSize returns an estimate, in bytes, of the block's encoded size
// if Finish were called now.
func (b *Builder) EstimatedSize() int {
	return len(b.buffer) + len(b.restarts)*4 + 4
}

// Empty reports whether no entry has been added since the last Reset.
func (b *Builder) Empty() bool {
	return len(b.buffer) == 0
}

// NumRestarts returns the number of restart points recorded; exact entry
// counts are not tracked.
func (b *Builder) NumRestarts() int {
	return len(b.restarts)
}

// Finish serializes the restart array and trailer and returns the
// complete block body. The returned slice is owned by the Builder until
// Reset is called.
func (b *Builder) Finish() []byte {
	for _, r := range b.restarts {
		b.buffer = encoding.AppendUint32(b.buffer, r)
	}
	b.buffer = encoding.AppendUint32(b.buffer, uint32(len(b.restarts)))
	b.finished = true
	return b.buffer
}

func sharedPrefixLength(a, b []byte) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
