package compaction

import (
	"context"
	"testing"
	"time"

	"github.com/vernedeng/risingwave/internal/manifest"
	"github.com/vernedeng/risingwave/internal/objstore"
	"github.com/vernedeng/risingwave/internal/table"
)

func TestCompactorDrainsL0OnNotify(t *testing.T) {
	store, oldTable, newTable := setupCompactorFixture(t)
	m := manifest.NewManager(nil)
	m.AddL0(oldTable)
	m.AddL0(newTable)
	m.AddL0(manifest.NewTable(buildRawTable(t, store, "remote/3.sst", map[string]*string{"d": strp("v3"), "e": strp("v3")}, 3)))
	m.AddL0(manifest.NewTable(buildRawTable(t, store, "remote/4.sst", map[string]*string{"d": strp("v4"), "e": strp("v4")}, 4)))

	nextID := uint64(100)
	c := NewCompactor(
		m,
		&Picker{L0Trigger: 4, LevelSizeThreshold: 1 << 30},
		store,
		"remote",
		table.DefaultBuilderOptions(),
		1<<20,
		nil,
		nil,
		func() uint64 { nextID++; return nextID },
		func() uint64 { return 0 },
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	c.Notify()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(m.Current().Tables(0)) == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(m.Current().Tables(0)) != 0 {
		t.Fatalf("L0 not drained: %d tables remain", len(m.Current().Tables(0)))
	}
	c.Stop()
}

func setupCompactorFixture(t *testing.T) (objstore.Store, *manifest.Table, *manifest.Table) {
	t.Helper()
	store := objstore.NewMemStore()
	oldMeta := buildRawTable(t, store, "remote/1.sst", map[string]*string{"a": strp("v1")}, 1)
	newMeta := buildRawTable(t, store, "remote/2.sst", map[string]*string{"b": strp("v2")}, 2)
	return store, manifest.NewTable(oldMeta), manifest.NewTable(newMeta)
}

func TestCompactorStopReturnsWhenIdle(t *testing.T) {
	m := manifest.NewManager(nil)
	c := NewCompactor(m, DefaultPicker(), objstore.NewMemStore(), "remote", table.DefaultBuilderOptions(), 1<<20, nil, nil,
		func() uint64 { return 1 }, func() uint64 { return 0 })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	c.Stop()
}
