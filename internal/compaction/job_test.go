package compaction

import (
	"context"
	"sort"
	"testing"

	blockpkg "github.com/vernedeng/risingwave/internal/block"
	"github.com/vernedeng/risingwave/internal/dbformat"
	"github.com/vernedeng/risingwave/internal/manifest"
	"github.com/vernedeng/risingwave/internal/objstore"
	"github.com/vernedeng/risingwave/internal/table"
)

func buildRawTable(t *testing.T, store objstore.Store, path string, entries map[string]*string, epoch uint64) *manifest.TableMeta {
	t.Helper()
	b := table.NewBuilder(table.DefaultBuilderOptions())
	var smallest, largest string
	first := true
	uks := make([]string, 0, len(entries))
	for uk := range entries {
		uks = append(uks, uk)
	}
	sort.Strings(uks)
	for _, uk := range uks {
		v := entries[uk]
		fk := dbformat.KeyWithEpoch([]byte(uk), epoch)
		var val []byte
		if v == nil {
			val = dbformat.DeleteValue().Encode(nil)
		} else {
			val = dbformat.PutValue([]byte(*v)).Encode(nil)
		}
		b.Add(fk, val, []byte(uk))
		if first || uk < smallest {
			smallest = uk
		}
		if first || uk > largest {
			largest = uk
		}
		first = false
	}
	data := b.Finish()
	ctx := context.Background()
	if err := store.Put(ctx, path, data); err != nil {
		t.Fatal(err)
	}
	return &manifest.TableMeta{TableID: epoch, Smallest: []byte(smallest), Largest: []byte(largest), Size: uint64(len(data)), MaxEpoch: epoch}
}

func strp(s string) *string { return &s }

func setupJobFixture(t *testing.T) (*manifest.Manager, objstore.Store, *manifest.Table, *manifest.Table) {
	t.Helper()
	store := objstore.NewMemStore()
	// buildRawTable adds the keys in sorted order, as table.Builder
	// requires, and stores each table at the path Job opens it from
	// ("remote/<table id>.sst", the table id being its epoch).
	oldMeta := buildRawTable(t, store, "remote/1.sst", map[string]*string{
		"a": strp("v1"), "b": strp("v1"), "c": strp("v1"),
	}, 1)
	newMeta := buildRawTable(t, store, "remote/2.sst", map[string]*string{
		"a": strp("v2"), "c": nil,
	}, 2)

	m := manifest.NewManager(nil)
	m.AddL0(manifest.NewTable(oldMeta))
	m.AddL0(manifest.NewTable(newMeta))

	cur := m.Current()
	var oldTable, newTable *manifest.Table
	for _, tbl := range cur.Tables(0) {
		if tbl.Meta.TableID == oldMeta.TableID {
			oldTable = tbl
		}
		if tbl.Meta.TableID == newMeta.TableID {
			newTable = tbl
		}
	}
	return m, store, oldTable, newTable
}

func readAllEntries(t *testing.T, r *table.Reader) map[string]dbformat.Value {
	t.Helper()
	ctx := context.Background()
	out := map[string]dbformat.Value{}
	idx := r.IndexIterator()
	idx.SeekToFirst()
	for idx.Valid() {
		h, _, err := blockpkg.DecodeHandle(idx.Value())
		if err != nil {
			t.Fatal(err)
		}
		blk, err := r.ReadBlock(ctx, h)
		if err != nil {
			t.Fatal(err)
		}
		it := blk.NewIterator()
		it.SeekToFirst()
		for it.Valid() {
			uk, _, err := dbformat.Split(it.Key())
			if err != nil {
				t.Fatal(err)
			}
			val, err := dbformat.DecodeValue(it.Value())
			if err != nil {
				t.Fatal(err)
			}
			// Ascending FK order visits a UK's highest epoch first; keep
			// only that first (most visible) entry per UK.
			if _, seen := out[string(uk)]; !seen {
				out[string(uk)] = val
			}
			it.Next()
		}
		idx.Next()
	}
	return out
}

func TestJobKeepsTombstoneAboveBottomLevel(t *testing.T) {
	m, store, oldTable, newTable := setupJobFixture(t)
	nextID := uint64(100)

	job := &Job{
		Plan:           &Plan{SourceLevel: 0, TargetLevel: 1, Inputs: []*manifest.Table{newTable, oldTable}},
		Store:          store,
		RemoteDir:      "remote",
		Manager:        m,
		Opts:           table.DefaultBuilderOptions(),
		TableSize:      1 << 20,
		NextTableID:    func() uint64 { nextID++; return nextID },
		MinPinnedEpoch: func() uint64 { return 0 },
	}
	outputs, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.State != StateCommitted {
		t.Fatalf("job state = %v, want committed", job.State)
	}
	if len(outputs) != 1 {
		t.Fatalf("got %d output tables, want 1", len(outputs))
	}

	r, err := outputs[0].Open(context.Background(), store, "remote")
	if err != nil {
		t.Fatal(err)
	}
	entries := readAllEntries(t, r)
	if v, ok := entries["a"]; !ok || v.Deleted || string(v.Payload) != "v2" {
		t.Fatalf("a = %+v, want put v2", v)
	}
	if v, ok := entries["b"]; !ok || v.Deleted || string(v.Payload) != "v1" {
		t.Fatalf("b = %+v, want put v1", v)
	}
	if v, ok := entries["c"]; !ok || !v.Deleted {
		t.Fatalf("c = %+v, want tombstone retained (not bottom level)", v)
	}
}

func TestJobDropsTombstoneAtBottomLevelBelowMinPinned(t *testing.T) {
	m, store, oldTable, newTable := setupJobFixture(t)
	nextID := uint64(100)

	job := &Job{
		Plan:           &Plan{SourceLevel: 0, TargetLevel: manifest.NumLevels - 1, Inputs: []*manifest.Table{newTable, oldTable}},
		Store:          store,
		RemoteDir:      "remote",
		Manager:        m,
		Opts:           table.DefaultBuilderOptions(),
		TableSize:      1 << 20,
		NextTableID:    func() uint64 { nextID++; return nextID },
		MinPinnedEpoch: func() uint64 { return 10 }, // no pinned snapshot needs epoch < 10
	}
	outputs, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	r, err := outputs[0].Open(context.Background(), store, "remote")
	if err != nil {
		t.Fatal(err)
	}
	entries := readAllEntries(t, r)
	if _, ok := entries["c"]; ok {
		t.Fatalf("expected tombstone for c to be dropped at the bottom level, got %+v", entries["c"])
	}
	if v, ok := entries["a"]; !ok || v.Deleted || string(v.Payload) != "v2" {
		t.Fatalf("a = %+v, want put v2", v)
	}
}

func TestJobRejectsStaleInput(t *testing.T) {
	m, store, oldTable, newTable := setupJobFixture(t)
	// Retract newTable from the Version out from under the job by
	// committing a compaction that consumes it first.
	if _, err := m.CommitCompaction([]*manifest.Table{newTable}, nil, 0, 1); err != nil {
		t.Fatal(err)
	}

	job := &Job{
		Plan:           &Plan{SourceLevel: 0, TargetLevel: 1, Inputs: []*manifest.Table{newTable, oldTable}},
		Store:          store,
		RemoteDir:      "remote",
		Manager:        m,
		Opts:           table.DefaultBuilderOptions(),
		TableSize:      1 << 20,
		NextTableID:    func() uint64 { return 999 },
		MinPinnedEpoch: func() uint64 { return 0 },
	}
	_, err := job.Run(context.Background())
	if err != manifest.ErrVersionConflict {
		t.Fatalf("got %v, want ErrVersionConflict", err)
	}
}
