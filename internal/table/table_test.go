package table

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	blockpkg "github.com/vernedeng/risingwave/internal/block"
	"github.com/vernedeng/risingwave/internal/checksum"
	"github.com/vernedeng/risingwave/internal/compress"
	"github.com/vernedeng/risingwave/internal/dbformat"
	"github.com/vernedeng/risingwave/internal/objstore"
)

type entry struct {
	uk    string
	epoch uint64
	value string
}

func buildTable(t *testing.T, store objstore.Store, path string, opts BuilderOptions, entries []entry) int64 {
	t.Helper()
	b := NewBuilder(opts)
	for _, e := range entries {
		fk := dbformat.KeyWithEpoch([]byte(e.uk), e.epoch)
		v := dbformat.PutValue([]byte(e.value)).Encode(nil)
		b.Add(fk, v, []byte(e.uk))
	}
	data := b.Finish()
	if err := store.Put(context.Background(), path, data); err != nil {
		t.Fatal(err)
	}
	return int64(len(data))
}

func makeEntries(n int) []entry {
	out := make([]entry, n)
	for i := range n {
		out[i] = entry{uk: fmt.Sprintf("uk-%05d", i), epoch: uint64(i), value: fmt.Sprintf("val-%05d", i)}
	}
	return out
}

func firstBlockHandle(t *testing.T, r *Reader) blockpkg.Handle {
	t.Helper()
	idx := r.IndexIterator()
	idx.SeekToFirst()
	if !idx.Valid() {
		t.Fatalf("empty block index")
	}
	h, _, err := blockpkg.DecodeHandle(idx.Value())
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestBuildAndReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemStore()
	entries := makeEntries(500)
	opts := DefaultBuilderOptions()
	opts.BlockSize = 512 // force multiple blocks
	size := buildTable(t, store, "t/1.sst", opts, entries)

	r, err := Open(ctx, store, "t/1.sst", size)
	if err != nil {
		t.Fatal(err)
	}

	idx := r.IndexIterator()
	idx.SeekToFirst()
	count := 0
	for idx.Valid() {
		handle, _, err := blockpkg.DecodeHandle(idx.Value())
		if err != nil {
			t.Fatal(err)
		}
		blk, err := r.ReadBlock(ctx, handle)
		if err != nil {
			t.Fatalf("ReadBlock: %v", err)
		}
		it := blk.NewIterator()
		it.SeekToFirst()
		for it.Valid() {
			uk, _, err := dbformat.Split(it.Key())
			if err != nil {
				t.Fatal(err)
			}
			want := entries[count]
			if string(uk) != want.uk {
				t.Fatalf("entry %d: uk=%q, want %q", count, uk, want.uk)
			}
			val, err := dbformat.DecodeValue(it.Value())
			if err != nil {
				t.Fatal(err)
			}
			if string(val.Payload) != want.value {
				t.Fatalf("entry %d: value=%q, want %q", count, val.Payload, want.value)
			}
			count++
			it.Next()
		}
		idx.Next()
	}
	if count != len(entries) {
		t.Fatalf("read %d entries, want %d", count, len(entries))
	}
}

func TestMayContainFilter(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemStore()
	entries := makeEntries(200)
	size := buildTable(t, store, "t/1.sst", DefaultBuilderOptions(), entries)
	r, err := Open(ctx, store, "t/1.sst", size)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if !r.MayContain([]byte(e.uk)) {
			t.Fatalf("filter false negative for %q", e.uk)
		}
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, algo := range []compress.Algorithm{compress.None, compress.Snappy, compress.LZ4, compress.Zstd} {
		store := objstore.NewMemStore()
		opts := DefaultBuilderOptions()
		opts.Compression = algo
		entries := makeEntries(100)
		size := buildTable(t, store, "t/c.sst", opts, entries)
		r, err := Open(ctx, store, "t/c.sst", size)
		if err != nil {
			t.Fatalf("algo %v: %v", algo, err)
		}
		handle := firstBlockHandle(t, r)
		blk, err := r.ReadBlock(ctx, handle)
		if err != nil {
			t.Fatalf("algo %v: ReadBlock: %v", algo, err)
		}
		it := blk.NewIterator()
		it.SeekToFirst()
		if !it.Valid() {
			t.Fatalf("algo %v: empty block", algo)
		}
	}
}

func TestCorruptionDetected(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemStore()
	entries := makeEntries(50)
	opts := DefaultBuilderOptions()
	opts.ChecksumAlgo = checksum.Crc32c
	size := buildTable(t, store, "t/corrupt.sst", opts, entries)

	raw, err := store.Get(ctx, "t/corrupt.sst", objstore.ByteRange{})
	if err != nil {
		t.Fatal(err)
	}
	corrupted := bytes.Clone(raw)
	corrupted[0] ^= 0xff
	if err := store.Put(ctx, "t/corrupt.sst", corrupted); err != nil {
		t.Fatal(err)
	}

	r, err := Open(ctx, store, "t/corrupt.sst", size)
	if err != nil {
		t.Fatal(err)
	}
	handle := firstBlockHandle(t, r)
	if _, err := r.ReadBlock(ctx, handle); err != ErrChecksumMismatch {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}
