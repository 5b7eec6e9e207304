package hummock

// errors.go defines the error kinds a caller can match against with
// errors.Is (spec §7).

import (
	"errors"
	"fmt"

	"github.com/vernedeng/risingwave/internal/block"
	"github.com/vernedeng/risingwave/internal/manifest"
	"github.com/vernedeng/risingwave/internal/table"
)

var (
	// ErrObjectStore wraps a failure reaching the object store (put, get,
	// or delete).
	ErrObjectStore = errors.New("hummock: object store error")
	// ErrInvalidSST covers corruption, truncation, or a bad magic number
	// detected while parsing a table.
	ErrInvalidSST = errors.New("hummock: invalid sst")
	// ErrChecksumMismatch is returned when a block or footer checksum
	// does not verify.
	ErrChecksumMismatch = errors.New("hummock: checksum mismatch")
	// ErrInvalidKey is returned for an empty user key, a malformed full
	// key, or a write batch not presented in strictly ascending user-key
	// order.
	ErrInvalidKey = errors.New("hummock: invalid key")
	// ErrVersionConflict is returned when a compaction job's inputs were
	// concurrently retracted from the current Version.
	ErrVersionConflict = manifest.ErrVersionConflict
	// ErrAborted is returned when an operation observes the stop signal
	// mid-flight.
	ErrAborted = errors.New("hummock: aborted")
)

// translateReadErr maps an error surfaced while parsing or fetching a
// table into one of the kinds above, preserving the original error via
// %w so errors.Is/As still reach it.
func translateReadErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, table.ErrChecksumMismatch), errors.Is(err, block.ErrBadBlock):
		return fmt.Errorf("%w: %v", ErrChecksumMismatch, err)
	case errors.Is(err, table.ErrBadMagic), errors.Is(err, table.ErrBadVersion),
		errors.Is(err, table.ErrFooterChecksum), errors.Is(err, table.ErrTruncatedFooter),
		errors.Is(err, block.ErrBadHandle):
		return fmt.Errorf("%w: %v", ErrInvalidSST, err)
	default:
		return fmt.Errorf("%w: %v", ErrObjectStore, err)
	}
}
