// write_batch.go implements the public WriteBatch API and the write path
// that turns a batch into an uploaded table (spec §4.5).
package hummock

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vernedeng/risingwave/internal/dbformat"
	"github.com/vernedeng/risingwave/internal/manifest"
)

// batchEntry is one pending mutation in a WriteBatch.
type batchEntry struct {
	userKey []byte
	value   dbformat.Value
}

// WriteBatch holds an ordered collection of mutations to be applied as
// one table under one epoch (spec §4.5 step 3). Callers must add entries
// in strictly ascending user-key order (spec §4.5 step 1); StateStore.Write
// rejects a batch that violates this with ErrInvalidKey.
//
// A WriteBatch can be reused by calling Clear() after Write().
//
// Example:
//
//	wb := hummock.NewWriteBatch()
//	wb.Put([]byte("aa"), []byte("111"))
//	wb.Put([]byte("bb"), []byte("222"))
//	wb.Delete([]byte("cc"))
//	err := store.Write(ctx, wb)
type WriteBatch struct {
	entries []batchEntry
}

// NewWriteBatch creates a new empty WriteBatch.
func NewWriteBatch() *WriteBatch {
	return &WriteBatch{}
}

// Put adds a key-value pair to the batch. Both are copied.
func (wb *WriteBatch) Put(key, value []byte) {
	wb.entries = append(wb.entries, batchEntry{
		userKey: append([]byte(nil), key...),
		value:   dbformat.PutValue(append([]byte(nil), value...)),
	})
}

// Delete adds a tombstone for key to the batch.
func (wb *WriteBatch) Delete(key []byte) {
	wb.entries = append(wb.entries, batchEntry{
		userKey: append([]byte(nil), key...),
		value:   dbformat.DeleteValue(),
	})
}

// Clear resets the batch to empty, allowing it to be reused.
func (wb *WriteBatch) Clear() {
	wb.entries = wb.entries[:0]
}

// Count returns the number of mutations in the batch.
func (wb *WriteBatch) Count() int {
	return len(wb.entries)
}

// validate checks every user key is non-empty and the batch is in
// strictly ascending user-key order (spec §4.5 step 1).
func (wb *WriteBatch) validate() error {
	for i, e := range wb.entries {
		if err := dbformat.ValidateUserKey(e.userKey); err != nil {
			return err
		}
		if i > 0 && bytes.Compare(e.userKey, wb.entries[i-1].userKey) <= 0 {
			return fmt.Errorf("write_batch: entry %d key %q does not strictly increase over %q",
				i, e.userKey, wb.entries[i-1].userKey)
		}
	}
	return nil
}

// Write runs the write path (spec §4.5): allocate an epoch, build one
// table from wb's entries, upload it, and publish it at L0. An empty
// batch still consumes an epoch (the gap is tolerated) but publishes
// nothing.
func (s *StateStore) Write(ctx context.Context, wb *WriteBatch) error {
	if err := wb.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	epoch := s.nextEpoch()

	builder := newTableBuilder(s.opts)
	for _, e := range wb.entries {
		fk := dbformat.KeyWithEpoch(e.userKey, epoch)
		builder.Add(fk, e.value.Encode(nil), e.userKey)
	}
	if builder.Empty() {
		return nil
	}

	data := builder.Finish()
	meta := &manifest.TableMeta{
		TableID:  epoch,
		Smallest: wb.entries[0].userKey,
		Largest:  wb.entries[len(wb.entries)-1].userKey,
		Size:     uint64(len(data)),
		MaxEpoch: epoch,
	}

	if err := s.store.Put(ctx, meta.Path(s.opts.RemoteDir), data); err != nil {
		return fmt.Errorf("%w: %v", ErrObjectStore, err)
	}

	s.manager.AddL0(manifest.NewTable(meta))
	s.metrics.AddPutBytes(len(data))
	s.compactor.Notify()
	return nil
}
