package dbformat

import (
	"errors"

	"github.com/vernedeng/risingwave/internal/encoding"
)

// ValueTag distinguishes a Put from a Delete (tombstone) in the
// serialized value stream (spec §4.1).
type ValueTag uint8

const (
	// TagDelete marks a tombstone; no payload follows.
	TagDelete ValueTag = 0
	// TagPut marks a value payload; a varint length and the bytes follow.
	TagPut ValueTag = 1
)

// ErrBadValue is returned when a serialized value has an unrecognized tag
// or a truncated payload.
var ErrBadValue = errors.New("dbformat: corrupted value encoding")

// Value is a Hummock value: either a Put carrying bytes, or a Delete
// tombstone.
type Value struct {
	Deleted bool
	Payload []byte
}

// PutValue constructs a Put value.
func PutValue(payload []byte) Value {
	return Value{Payload: payload}
}

// DeleteValue constructs a Delete (tombstone) value.
func DeleteValue() Value {
	return Value{Deleted: true}
}

// IsPut reports whether v carries a payload rather than a tombstone.
func (v Value) IsPut() bool {
	return !v.Deleted
}

// Encode appends the serialized form of v to dst: a 1-byte tag, then, for
// a Put, a varint length followed by the payload.
func (v Value) Encode(dst []byte) []byte {
	if v.Deleted {
		return append(dst, byte(TagDelete))
	}
	dst = append(dst, byte(TagPut))
	dst = encoding.AppendVarint64(dst, uint64(len(v.Payload)))
	return append(dst, v.Payload...)
}

// EncodedLength returns the number of bytes Encode would append.
func (v Value) EncodedLength() int {
	if v.Deleted {
		return 1
	}
	return 1 + encoding.VarintLength64(uint64(len(v.Payload))) + len(v.Payload)
}

// DecodeValue parses a Value from the front of data.
func DecodeValue(data []byte) (Value, error) {
	if len(data) == 0 {
		return Value{}, ErrBadValue
	}
	switch ValueTag(data[0]) {
	case TagDelete:
		return DeleteValue(), nil
	case TagPut:
		n, consumed, err := encoding.DecodeVarint64(data[1:])
		if err != nil {
			return Value{}, ErrBadValue
		}
		start := 1 + consumed
		if uint64(len(data)-start) < n {
			return Value{}, ErrBadValue
		}
		return PutValue(data[start : start+int(n)]), nil
	default:
		return Value{}, ErrBadValue
	}
}
