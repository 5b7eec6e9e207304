package iterator

import (
	"bytes"

	"github.com/vernedeng/risingwave/internal/dbformat"
)

// UserKeyIterator wraps a MergingIterator, collapsing it down to one
// entry per distinct user key: the Put/Delete with the largest epoch not
// exceeding a snapshot epoch, filtered to a user-key range (spec §4.4).
// A UK whose visible entry is a Delete is skipped entirely.
type UserKeyIterator struct {
	inner         Iterator
	snapshotEpoch uint64
	rng           Range

	valid bool
	uk    []byte
	value []byte
	err   error
}

// NewUserKeyIterator wraps inner, which must already produce (FK, V)
// pairs in ascending full-key order (typically a MergingIterator over a
// Version's tables).
func NewUserKeyIterator(inner Iterator, snapshotEpoch uint64, rng Range) *UserKeyIterator {
	return &UserKeyIterator{inner: inner, snapshotEpoch: snapshotEpoch, rng: rng}
}

// IsValid reports whether the iterator is positioned at a visible UK.
func (u *UserKeyIterator) IsValid() bool {
	return u.valid && u.err == nil
}

// Key returns the current user key. Only valid when IsValid().
func (u *UserKeyIterator) Key() []byte {
	return u.uk
}

// Value returns the current Put payload. Only valid when IsValid().
func (u *UserKeyIterator) Value() []byte {
	return u.value
}

// Error returns any error encountered while iterating.
func (u *UserKeyIterator) Error() error {
	return u.err
}

// Rewind positions the iterator at the first visible UK in range.
func (u *UserKeyIterator) Rewind() {
	u.err = nil
	if u.rng.Lower.Kind == Unbounded {
		u.inner.SeekToFirst()
	} else {
		u.inner.Seek(dbformat.KeyWithEpoch(u.rng.Lower.Key, ^uint64(0)))
	}
	u.advanceToVisible()
}

// Seek positions the iterator at the first visible UK >= userKey.
func (u *UserKeyIterator) Seek(userKey []byte) {
	u.err = nil
	u.inner.Seek(dbformat.KeyWithEpoch(userKey, ^uint64(0)))
	u.advanceToVisible()
}

// Next advances to the next visible UK.
func (u *UserKeyIterator) Next() {
	if !u.IsValid() {
		return
	}
	u.skipCurrentUK()
	u.advanceToVisible()
}

// skipCurrentUK advances the inner iterator past every remaining entry
// for the UK we just yielded.
func (u *UserKeyIterator) skipCurrentUK() {
	for u.inner.Valid() {
		uk, _, err := dbformat.Split(u.inner.Key())
		if err != nil {
			u.err = err
			return
		}
		if !bytes.Equal(uk, u.uk) {
			return
		}
		u.inner.Next()
	}
}

// advanceToVisible scans forward from the inner iterator's current
// position to the next UK with a visible (non-tombstone) entry at or
// below snapshotEpoch, within range.
func (u *UserKeyIterator) advanceToVisible() {
	for {
		if err := u.inner.Error(); err != nil {
			u.err = err
			u.valid = false
			return
		}
		if !u.inner.Valid() {
			u.valid = false
			return
		}

		uk, epoch, err := dbformat.Split(u.inner.Key())
		if err != nil {
			u.err = err
			u.valid = false
			return
		}

		if u.rng.aboveUpper(uk) {
			u.valid = false
			return
		}
		if epoch > u.snapshotEpoch {
			// Not yet visible at this snapshot; the next entry for this
			// full key ordering is either a lower epoch of the same UK or
			// the next UK entirely.
			u.inner.Next()
			continue
		}
		if u.rng.belowLower(uk) {
			u.skipUKPrefix(uk)
			continue
		}

		val, err := dbformat.DecodeValue(u.inner.Value())
		if err != nil {
			u.err = err
			u.valid = false
			return
		}
		if val.Deleted {
			u.skipUKPrefix(uk)
			continue
		}

		u.uk = append(u.uk[:0], uk...)
		u.value = val.Payload
		u.valid = true
		return
	}
}

// skipUKPrefix advances past every remaining entry whose UK equals uk,
// without yet having committed uk as the current key.
func (u *UserKeyIterator) skipUKPrefix(uk []byte) {
	for u.inner.Valid() {
		k, _, err := dbformat.Split(u.inner.Key())
		if err != nil {
			u.err = err
			return
		}
		if !bytes.Equal(k, uk) {
			return
		}
		u.inner.Next()
	}
}
