package compaction

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vernedeng/risingwave/internal/dbformat"
	"github.com/vernedeng/risingwave/internal/iterator"
	"github.com/vernedeng/risingwave/internal/manifest"
	"github.com/vernedeng/risingwave/internal/metrics"
	"github.com/vernedeng/risingwave/internal/objstore"
	"github.com/vernedeng/risingwave/internal/table"
)

// State is a compaction job's position in its lifecycle (spec §4.6):
// Picked -> Building -> Uploaded -> Committed, or Picked -> Aborted.
type State int

const (
	StatePicked State = iota
	StateBuilding
	StateUploaded
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePicked:
		return "picked"
	case StateBuilding:
		return "building"
	case StateUploaded:
		return "uploaded"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Job executes one Plan: merges its input tables, applies the retention
// rule, uploads new tables, and commits them through the Manager (spec
// §4.6 steps 2-4).
type Job struct {
	Plan      *Plan
	Store     objstore.Store
	RemoteDir string
	Manager   *manifest.Manager
	Opts      table.BuilderOptions
	// TableSize is the soft per-output-table byte target (spec §6
	// table_size); writeOutputs rolls to a new table once a builder's
	// estimated size reaches it.
	TableSize int

	// NextTableID assigns the id of each output table; an output's
	// MaxEpoch is the largest epoch among the entries written to it.
	NextTableID func() uint64
	// MinPinnedEpoch returns the smallest epoch any currently-pinned
	// snapshot was taken at, or the current high-water epoch if none are
	// pinned. Used by the retention rule (spec §4.6 step 3).
	MinPinnedEpoch func() uint64
	// Metrics receives the job's input byte count; nil-safe.
	Metrics *metrics.Registry

	State State
}

// mergedEntry is one (full key, value) pair surviving retention,
// destined for an output table.
type mergedEntry struct {
	fk, value, uk []byte
}

// Run executes the job end to end. ctx cancellation is honored between
// entries and between output uploads, surfacing context.Canceled as
// StateAborted (spec §5 "the compactor task honors a dedicated stop
// channel; on stop, any in-flight job is abandoned").
func (j *Job) Run(ctx context.Context) ([]*manifest.Table, error) {
	j.State = StateBuilding

	readers := make([]*table.Reader, len(j.Plan.Inputs))
	var inputBytes int
	for i, t := range j.Plan.Inputs {
		r, err := t.Open(ctx, j.Store, j.RemoteDir)
		if err != nil {
			j.State = StateAborted
			return nil, fmt.Errorf("compaction: open input table %d: %w", t.Meta.TableID, err)
		}
		readers[i] = r
		inputBytes += int(t.Meta.Size)
	}
	j.Metrics.AddCompactionBytesRead(inputBytes)

	children := make([]iterator.Iterator, len(readers))
	for i, r := range readers {
		children[i] = iterator.NewTableIterator(ctx, r)
	}
	merged := iterator.NewMergingIterator(children)

	entries, err := j.mergeWithRetention(ctx, merged)
	if err != nil {
		j.State = StateAborted
		return nil, err
	}

	outputs, err := j.writeOutputs(ctx, entries)
	if err != nil {
		j.State = StateAborted
		return nil, err
	}
	j.State = StateUploaded

	for _, out := range outputs {
		if err := ctx.Err(); err != nil {
			j.State = StateAborted
			return nil, err
		}
		if err := j.Store.Put(ctx, out.Meta.Path(j.RemoteDir), out.encoded); err != nil {
			j.State = StateAborted
			return nil, fmt.Errorf("compaction: upload output table: %w", err)
		}
	}

	tables := make([]*manifest.Table, len(outputs))
	for i, out := range outputs {
		tables[i] = manifest.NewTable(out.Meta)
	}

	if _, err := j.Manager.CommitCompaction(j.Plan.Inputs, tables, j.Plan.SourceLevel, j.Plan.TargetLevel); err != nil {
		// VersionConflict is swallowed by the caller (Compactor loop),
		// which retries on the next wake; the uploaded outputs are left
		// as garbage for a future compaction to supersede.
		j.State = StateAborted
		return nil, err
	}
	j.State = StateCommitted
	return tables, nil
}

// mergeWithRetention walks merged in ascending full-key order, grouping
// consecutive entries sharing a user key (guaranteed contiguous, since FK
// order is UK-major), and applies the spec §4.6 step 3 retention rule to
// each group.
func (j *Job) mergeWithRetention(ctx context.Context, merged *iterator.MergingIterator) ([]mergedEntry, error) {
	bottomLevel := j.Plan.TargetLevel == manifest.NumLevels-1
	minPinned := j.MinPinnedEpoch()

	var out []mergedEntry
	merged.SeekToFirst()
	for merged.Valid() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		uk, _, err := dbformat.Split(merged.Key())
		if err != nil {
			return nil, fmt.Errorf("compaction: %w", err)
		}

		var group []mergedEntry
		for merged.Valid() {
			gk, _, err := dbformat.Split(merged.Key())
			if err != nil {
				return nil, fmt.Errorf("compaction: %w", err)
			}
			if string(gk) != string(uk) {
				break
			}
			fk := append([]byte(nil), merged.Key()...)
			value := append([]byte(nil), merged.Value()...)
			group = append(group, mergedEntry{fk: fk, value: value, uk: uk})
			merged.Next()
		}
		if err := merged.Error(); err != nil {
			return nil, err
		}

		kept, err := retain(group, bottomLevel, minPinned)
		if err != nil {
			return nil, err
		}
		out = append(out, kept...)
	}
	return out, nil
}

// retain applies the UK-group retention rule: the max-epoch entry is
// always a candidate; a tombstone at the bottom level that predates every
// pinned snapshot is dropped along with everything it shadows, otherwise
// every entry with epoch > minPinned survives plus the single newest entry
// at or below minPinned — the value a snapshot pinned at an intermediate
// epoch would still need to see (spec §4.6 step 3, P7).
func retain(group []mergedEntry, bottomLevel bool, minPinned uint64) ([]mergedEntry, error) {
	if len(group) == 0 {
		return nil, nil
	}
	head := group[0] // largest epoch for this UK, since FK order is descending-epoch within a UK.
	_, headEpoch, err := dbformat.Split(head.fk)
	if err != nil {
		return nil, err
	}
	headVal, err := dbformat.DecodeValue(head.value)
	if err != nil {
		return nil, err
	}

	if headVal.Deleted && bottomLevel && headEpoch <= minPinned {
		return nil, nil
	}

	kept := []mergedEntry{head}
	keptFloor := headEpoch <= minPinned
	for _, e := range group[1:] {
		_, epoch, err := dbformat.Split(e.fk)
		if err != nil {
			return nil, err
		}
		switch {
		case epoch > minPinned:
			kept = append(kept, e)
		case !keptFloor:
			kept = append(kept, e)
			keptFloor = true
		}
	}
	return kept, nil
}

// builtOutput is a finished output table awaiting upload.
type builtOutput struct {
	Meta    *manifest.TableMeta
	encoded []byte
}

// writeOutputs packs entries into one or more tables, rolling over to a
// new table once the current builder's estimated size reaches
// j.TableSize (spec §4.6 step 3 "rolling to a new
// table when estimated size reaches table_size"). The roll only happens
// on a UK boundary, never in the middle of one UK's retained entries, so
// every output table's key range stays disjoint from its neighbors (V1).
func (j *Job) writeOutputs(ctx context.Context, entries []mergedEntry) ([]*builtOutput, error) {
	var outputs []*builtOutput
	if len(entries) == 0 {
		return outputs, nil
	}

	var b *table.Builder
	var smallest, largest []byte
	var maxEpoch uint64
	var tableID uint64
	var pendingRoll bool

	flush := func() {
		if b == nil || b.Empty() {
			return
		}
		data := b.Finish()
		outputs = append(outputs, &builtOutput{
			Meta: &manifest.TableMeta{
				TableID:  tableID,
				Smallest: smallest,
				Largest:  largest,
				Size:     uint64(len(data)),
				MaxEpoch: maxEpoch,
			},
			encoded: data,
		})
	}

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		atUKBoundary := i == 0 || !bytes.Equal(e.uk, entries[i-1].uk)
		if pendingRoll && atUKBoundary {
			flush()
			b = nil
			pendingRoll = false
		}
		if b == nil {
			b = table.NewBuilder(j.Opts)
			tableID = j.NextTableID()
			smallest = e.uk
			maxEpoch = 0
		}
		_, epoch, err := dbformat.Split(e.fk)
		if err != nil {
			return nil, err
		}
		if epoch > maxEpoch {
			maxEpoch = epoch
		}
		b.Add(e.fk, e.value, e.uk)
		largest = e.uk

		if b.EstimatedSize() >= j.TableSize {
			pendingRoll = true
		}
	}
	flush()
	return outputs, nil
}
