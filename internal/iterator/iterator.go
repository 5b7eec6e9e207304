// Package iterator implements the four layers of read-path iteration
// (spec §4.4): per-block, per-table, a merging iterator across tables,
// and a user-key iterator applying snapshot visibility and tombstones.
//
// Reference: aalhour/rockyardkv internal/iterator/merging_iterator.go.
package iterator

// Iterator produces (full key, value) pairs in ascending full-key order.
// Full keys sort correctly under plain byte comparison (see
// internal/dbformat), so every layer compares keys with bytes.Compare.
type Iterator interface {
	// Valid reports whether the iterator is positioned at an entry.
	Valid() bool
	// Key returns the current full key. Only valid when Valid().
	Key() []byte
	// Value returns the current value. Only valid when Valid().
	Value() []byte
	// SeekToFirst positions the iterator at its first entry.
	SeekToFirst()
	// SeekToLast positions the iterator at its last entry.
	SeekToLast()
	// Seek positions the iterator at the first entry with key >= target.
	Seek(target []byte)
	// Next advances to the next entry.
	Next()
	// Prev moves to the preceding entry.
	Prev()
	// Error returns any error encountered while iterating.
	Error() error
}
