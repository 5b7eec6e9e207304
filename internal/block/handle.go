// Package block implements the restart-point prefix-compressed block
// format data blocks and the block index both use (spec §6). A block holds
// a sequence of full-key/value entries in ascending full-key order; every
// restartInterval-th entry stores its key whole, the rest store only the
// suffix unshared with the previous key.
//
// Full keys already sort correctly under plain byte comparison (the epoch
// suffix is big-endian and bit-inverted, see internal/dbformat), so this
// package never needs RocksDB-style trailer-aware comparison.
//
// Reference: aalhour/rockyardkv internal/block/{handle,builder,block}.go.
package block

import (
	"errors"

	"github.com/vernedeng/risingwave/internal/encoding"
)

var (
	// ErrBadHandle is returned when a block handle is corrupted.
	ErrBadHandle = errors.New("block: bad handle")
	// ErrBadBlock is returned when a block body is corrupted.
	ErrBadBlock = errors.New("block: corrupted block")
)

// Handle points to a byte range within a table file: a data block, the
// block index, or the bloom filter.
type Handle struct {
	Offset uint64
	Size   uint64
}

// MaxEncodedLength is the largest encoding a Handle can occupy: two
// varint64s, each up to 10 bytes.
const MaxEncodedLength = 2 * encoding.MaxVarint64Length

// EncodeTo appends the encoding of h to dst.
func (h Handle) EncodeTo(dst []byte) []byte {
	dst = encoding.AppendVarint64(dst, h.Offset)
	dst = encoding.AppendVarint64(dst, h.Size)
	return dst
}

// EncodedLength returns the number of bytes EncodeTo would append.
func (h Handle) EncodedLength() int {
	return encoding.VarintLength64(h.Offset) + encoding.VarintLength64(h.Size)
}

// DecodeHandle decodes a Handle from the front of data, returning the
// remaining bytes.
func DecodeHandle(data []byte) (Handle, []byte, error) {
	offset, n1, err := encoding.DecodeVarint64(data)
	if err != nil {
		return Handle{}, nil, ErrBadHandle
	}
	data = data[n1:]

	size, n2, err := encoding.DecodeVarint64(data)
	if err != nil {
		return Handle{}, nil, ErrBadHandle
	}
	data = data[n2:]

	return Handle{Offset: offset, Size: size}, data, nil
}
