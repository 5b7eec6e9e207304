// Package dbformat implements Hummock's key and value encoding (spec §3,
// §4.1): the full key a user key is stored under, and the tagged
// representation of a Put or Delete value.
package dbformat

import (
	"errors"

	"github.com/vernedeng/risingwave/internal/encoding"
)

// EpochLength is the number of bytes the inverted epoch occupies at the
// tail of a full key.
const EpochLength = 8

// ErrEmptyUserKey is returned when a caller supplies an empty user key;
// empty user keys are rejected (spec §3).
var ErrEmptyUserKey = errors.New("dbformat: user key must be non-empty")

// ErrMalformedFullKey is returned when a full key is shorter than the
// epoch suffix it must carry.
var ErrMalformedFullKey = errors.New("dbformat: full key too short to hold an epoch suffix")

// KeyWithEpoch builds a full key from a user key and an epoch:
// uk || BE64(MaxUint64 - e). The epoch is inverted so that, for equal uk,
// a larger epoch sorts before a smaller one under plain byte comparison.
func KeyWithEpoch(uk []byte, e uint64) []byte {
	fk := make([]byte, len(uk)+EpochLength)
	copy(fk, uk)
	encoding.PutUint64BE(fk[len(uk):], ^uint64(0)-e)
	return fk
}

// UserKey returns the user-key prefix of a full key.
// REQUIRES: len(fk) >= EpochLength.
func UserKey(fk []byte) []byte {
	return fk[:len(fk)-EpochLength]
}

// EpochOf returns the epoch a full key was written at.
// REQUIRES: len(fk) >= EpochLength.
func EpochOf(fk []byte) uint64 {
	inverted := encoding.Uint64BE(fk[len(fk)-EpochLength:])
	return ^uint64(0) - inverted
}

// Split decomposes a full key into its user key and epoch, validating its
// length.
func Split(fk []byte) (uk []byte, epoch uint64, err error) {
	if len(fk) < EpochLength {
		return nil, 0, ErrMalformedFullKey
	}
	return UserKey(fk), EpochOf(fk), nil
}

// ValidateUserKey rejects an empty user key.
func ValidateUserKey(uk []byte) error {
	if len(uk) == 0 {
		return ErrEmptyUserKey
	}
	return nil
}
