/*
Package hummock is the LSM-tree state store core of a shared,
log-structured storage layer for a streaming dataflow system.

Hummock accepts batched, ordered key/value mutations from streaming
operators, persists them as immutable sorted tables (SSTs) in a remote
object store, and exposes point-lookup and range-scan reads against
versioned snapshots. It does not implement the object store itself, the
metrics registry's transport, process wiring, or the upstream operators
that produce batches — those are external collaborators.

# Usage

	store := hummock.NewStateStore(myObjectStore, hummock.DefaultOptions())
	go store.StartCompactor(ctx)
	defer store.StopCompactor()

	wb := hummock.NewWriteBatch()
	wb.Put([]byte("aa"), []byte("111"))
	wb.Delete([]byte("bb"))
	if err := store.Write(ctx, wb); err != nil {
		// handle error
	}

	snap := store.Pin()
	defer snap.Release()
	v, found, err := snap.Get(ctx, []byte("aa"))

# Concurrency

A StateStore is safe for concurrent use by multiple goroutines: many
readers and one writer run wait-free against each other because Versions
are immutable and swapped atomically. write_batch calls must still be
serialized by the caller. At most one compactor goroutine should run per
StateStore.

# Versioning

Reads bind to a Snapshot, a handle pinning one immutable Version of the
level set. A Version's tables are reference-counted; a table is deleted
from the object store only once no live Version references it.
*/
package hummock
