// Package encoding provides the binary encoding primitives used throughout
// Hummock's on-disk formats: fixed-width little-endian integers and
// varint-encoded lengths, shared by the block, table, and key layers.
//
// Reference: aalhour/rockyardkv internal/encoding/coding.go.
package encoding

import (
	"encoding/binary"
	"errors"
)

// MaxVarint32Length is the maximum number of bytes a varint32 can occupy.
const MaxVarint32Length = 5

// MaxVarint64Length is the maximum number of bytes a varint64 can occupy.
const MaxVarint64Length = 10

// ErrVarintOverflow is returned when a varint exceeds the width being
// decoded (32 bits for DecodeVarint32, 64 bits for DecodeVarint64).
var ErrVarintOverflow = errors.New("encoding: varint overflow")

// ErrVarintTruncated is returned when a varint's continuation bit is set on
// the last available byte of the input.
var ErrVarintTruncated = errors.New("encoding: varint truncated")

// PutUint32 writes v as 4 little-endian bytes into dst.
// REQUIRES: len(dst) >= 4.
func PutUint32(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst, v)
}

// Uint32 reads 4 little-endian bytes from src.
// REQUIRES: len(src) >= 4.
func Uint32(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}

// AppendUint32 appends v as 4 little-endian bytes to dst and returns the
// extended slice.
func AppendUint32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// PutUint64BE writes v as 8 big-endian bytes into dst. Used for the inverted
// epoch suffix of a full key, where big-endian byte order is required so
// that plain byte comparison orders keys correctly.
// REQUIRES: len(dst) >= 8.
func PutUint64BE(dst []byte, v uint64) {
	binary.BigEndian.PutUint64(dst, v)
}

// Uint64BE reads 8 big-endian bytes from src.
// REQUIRES: len(src) >= 8.
func Uint64BE(src []byte) uint64 {
	return binary.BigEndian.Uint64(src)
}

// AppendVarint32 appends the varint encoding of v to dst and returns the
// extended slice.
func AppendVarint32(dst []byte, v uint32) []byte {
	return AppendVarint64(dst, uint64(v))
}

// AppendVarint64 appends the varint encoding of v to dst and returns the
// extended slice.
func AppendVarint64(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// VarintLength32 returns the number of bytes AppendVarint32 would write.
func VarintLength32(v uint32) int {
	return VarintLength64(uint64(v))
}

// VarintLength64 returns the number of bytes AppendVarint64 would write.
func VarintLength64(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// DecodeVarint32 decodes a varint32 from the front of src, returning the
// value and the number of bytes consumed.
func DecodeVarint32(src []byte) (uint32, int, error) {
	v, n, err := DecodeVarint64(src)
	if err != nil {
		return 0, 0, err
	}
	if v > 0xffffffff {
		return 0, 0, ErrVarintOverflow
	}
	return uint32(v), n, nil
}

// DecodeVarint64 decodes a varint64 from the front of src, returning the
// value and the number of bytes consumed.
func DecodeVarint64(src []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i, b := range src {
		if i >= MaxVarint64Length {
			return 0, 0, ErrVarintOverflow
		}
		result |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrVarintTruncated
}
