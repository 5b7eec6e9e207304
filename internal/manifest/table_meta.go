// Package manifest tracks the set of live tables per level and publishes
// immutable Versions under monotonically increasing epochs (spec §4.3).
package manifest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vernedeng/risingwave/internal/objstore"
	"github.com/vernedeng/risingwave/internal/table"
)

// NumLevels is the number of levels in the LSM tree: L0 plus six disjoint
// levels.
const NumLevels = 7

// TableMeta is the persisted identity of one SST: its id, key range, size,
// and the epoch it was built at (spec §3 Table).
type TableMeta struct {
	// TableID uniquely identifies the table; the write path assigns
	// TableID = the batch's epoch (spec §9 open questions: one table per
	// batch, one epoch per table).
	TableID uint64
	// Smallest and Largest are the table's user-key bounds, inclusive.
	Smallest []byte
	Largest  []byte
	// Size is the encoded table's byte length.
	Size uint64
	// MaxEpoch is the largest epoch any entry in the table was written
	// at. For a write-path table this equals TableID; a compaction
	// output's MaxEpoch is the max over its inputs.
	MaxEpoch uint64
}

// Path returns the object-store path a table is stored under,
// "{remoteDir}/{TableID}.sst" (spec §6 object store contract).
func (m *TableMeta) Path(remoteDir string) string {
	return fmt.Sprintf("%s/%d.sst", remoteDir, m.TableID)
}

// Table pairs a TableMeta with its lazily-opened Reader and a reference
// count shared across every live Version that includes it. A Table
// reaches refs == 0 exactly when no pinned Version references it any
// longer, at which point it is safe to delete from the object store
// (spec §4.3 V2, §9 "versioning without GC cycles").
type Table struct {
	Meta *TableMeta

	refs     int32
	openOnce sync.Once
	reader   *table.Reader
	openErr  error
}

// NewTable wraps meta with an initial refcount of zero; callers should not
// construct Tables directly except through Builder/Compactor output —
// VersionManager takes the first ref when the table enters a Version.
func NewTable(meta *TableMeta) *Table {
	return &Table{Meta: meta}
}

// Ref increments the table's refcount.
func (t *Table) Ref() {
	atomic.AddInt32(&t.refs, 1)
}

// Unref decrements the table's refcount and reports whether it reached
// zero (the caller should then schedule the table for object-store
// deletion).
func (t *Table) Unref() bool {
	return atomic.AddInt32(&t.refs, -1) == 0
}

// RefCount returns the current refcount, chiefly for tests.
func (t *Table) RefCount() int32 {
	return atomic.LoadInt32(&t.refs)
}

// Open lazily opens the table's Reader against store, caching it. Safe to
// call concurrently: the first caller performs the open under openOnce,
// every other caller (including a concurrent reader racing the compactor,
// spec §5 "many readers ... wait-free against each other") blocks on it and
// observes the same Reader or error.
func (t *Table) Open(ctx context.Context, store objstore.Store, remoteDir string) (*table.Reader, error) {
	t.openOnce.Do(func() {
		t.reader, t.openErr = table.Open(ctx, store, t.Meta.Path(remoteDir), int64(t.Meta.Size))
	})
	return t.reader, t.openErr
}

// Reader returns the table's Reader, or nil if Open has not been called.
func (t *Table) Reader() *table.Reader {
	return t.reader
}
