package iterator

import (
	"context"
	"fmt"
	"testing"

	"github.com/vernedeng/risingwave/internal/dbformat"
	"github.com/vernedeng/risingwave/internal/objstore"
	"github.com/vernedeng/risingwave/internal/table"
)

type kv struct {
	uk    string
	epoch uint64
	value string
}

func buildTestTable(t *testing.T, store objstore.Store, path string, opts table.BuilderOptions, entries []kv) int64 {
	t.Helper()
	b := table.NewBuilder(opts)
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

func makeKVs(n int) []kv {
	out := make([]kv, n)
	for i := range n {
		out[i] = kv{uk: fmt.Sprintf("uk-%05d", i), epoch: uint64(i), value: fmt.Sprintf("val-%05d", i)}
	}
	return out
}

func TestTableIteratorForward(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemStore()
	entries := makeKVs(300)
	opts := table.DefaultBuilderOptions()
	opts.BlockSize = 512
	size := buildTestTable(t, store, "t/1.sst", opts, entries)

	r, err := table.Open(ctx, store, "t/1.sst", size)
	if err != nil {
		t.Fatal(err)
	}

	it := NewTableIterator(ctx, r)
	it.SeekToFirst()
	count := 0
	for it.Valid() {
		uk, _, err := dbformat.Split(it.Key())
		if err != nil {
			t.Fatal(err)
		}
		if string(uk) != entries[count].uk {
			t.Fatalf("entry %d: uk=%q, want %q", count, uk, entries[count].uk)
		}
		count++
		it.Next()
	}
	if err := it.Error(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	if count != len(entries) {
		t.Fatalf("read %d entries, want %d", count, len(entries))
	}
}

func TestTableIteratorBackward(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemStore()
	entries := makeKVs(300)
	opts := table.DefaultBuilderOptions()
	opts.BlockSize = 512
	size := buildTestTable(t, store, "t/1.sst", opts, entries)

	r, err := table.Open(ctx, store, "t/1.sst", size)
	if err != nil {
		t.Fatal(err)
	}

	it := NewTableIterator(ctx, r)
	it.SeekToLast()
	count := len(entries) - 1
	for it.Valid() {
		uk, _, err := dbformat.Split(it.Key())
		if err != nil {
			t.Fatal(err)
		}
		if string(uk) != entries[count].uk {
			t.Fatalf("entry %d: uk=%q, want %q", count, uk, entries[count].uk)
		}
		count--
		it.Prev()
	}
	if count != -1 {
		t.Fatalf("stopped early at index %d", count)
	}
}

func TestTableIteratorSeek(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemStore()
	entries := makeKVs(300)
	opts := table.DefaultBuilderOptions()
	opts.BlockSize = 512
	size := buildTestTable(t, store, "t/1.sst", opts, entries)

	r, err := table.Open(ctx, store, "t/1.sst", size)
	if err != nil {
		t.Fatal(err)
	}

	it := NewTableIterator(ctx, r)
	target := dbformat.KeyWithEpoch([]byte(entries[150].uk), entries[150].epoch)
	it.Seek(target)
	if !it.Valid() {
		t.Fatalf("seek landed on invalid position")
	}
	uk, _, err := dbformat.Split(it.Key())
	if err != nil {
		t.Fatal(err)
	}
	if string(uk) != entries[150].uk {
		t.Fatalf("seek landed on %q, want %q", uk, entries[150].uk)
	}
}

func TestTableIteratorSeekPastEnd(t *testing.T) {
	ctx := context.Background()
	store := objstore.NewMemStore()
	entries := makeKVs(50)
	size := buildTestTable(t, store, "t/1.sst", table.DefaultBuilderOptions(), entries)

	r, err := table.Open(ctx, store, "t/1.sst", size)
	if err != nil {
		t.Fatal(err)
	}

	it := NewTableIterator(ctx, r)
	it.Seek([]byte("zzzzzzzz"))
	if it.Valid() {
		t.Fatalf("expected invalid iterator after seeking past the end")
	}
}
