package manifest

import (
	"bytes"
	"sync/atomic"
)

// Version is an immutable snapshot of the level set (spec §3 Version).
// L0 holds possibly-overlapping tables ordered newest-first (descending
// TableID); L1..L6 hold disjoint tables in ascending user-key order
// (spec §3 Level, §4.3 V1).
type Version struct {
	levels [NumLevels][]*Table

	// epochHighWater is the largest epoch committed to this Version
	// (spec §4.3 V3: non-decreasing across published Versions).
	epochHighWater uint64

	number uint64
	refs   int32
}

// Number returns the Version's sequence number, for debugging and tests.
func (v *Version) Number() uint64 {
	return v.number
}

// EpochHighWater returns the largest epoch visible to a snapshot pinning
// this Version.
func (v *Version) EpochHighWater() uint64 {
	return v.epochHighWater
}

// Levels returns the tables at every level, L0 first. The returned slices
// must not be mutated.
func (v *Version) Levels() [NumLevels][]*Table {
	return v.levels
}

// Tables returns the tables at level, or nil if level is out of range.
func (v *Version) Tables(level int) []*Table {
	if level < 0 || level >= NumLevels {
		return nil
	}
	return v.levels[level]
}

// AllTables returns every table referenced by the Version, L0 first then
// L1..L6 in level order. This is the input to a MergingIterator that
// needs to see the whole Version (spec §4.4 MergingIterator).
func (v *Version) AllTables() []*Table {
	var out []*Table
	for level := range NumLevels {
		out = append(out, v.levels[level]...)
	}
	return out
}

// Ref increments the Version's refcount; used by Snapshot.Pin and by the
// VersionManager's own "current" slot.
func (v *Version) Ref() {
	atomic.AddInt32(&v.refs, 1)
}

// Unref decrements the Version's refcount. When it reaches zero, every
// table the Version references is itself unreffed; a table whose own
// refcount reaches zero is passed to onObsolete for deletion.
func (v *Version) Unref(onObsolete func(*Table)) {
	if atomic.AddInt32(&v.refs, -1) != 0 {
		return
	}
	for level := range NumLevels {
		for _, t := range v.levels[level] {
			if t.Unref() && onObsolete != nil {
				onObsolete(t)
			}
		}
	}
}

// OverlappingInputs returns the tables at level whose [Smallest, Largest]
// range intersects [begin, end]. A nil bound means unbounded on that
// side.
func (v *Version) OverlappingInputs(level int, begin, end []byte) []*Table {
	if level < 0 || level >= NumLevels {
		return nil
	}
	var out []*Table
	for _, t := range v.levels[level] {
		if begin != nil && bytes.Compare(t.Meta.Largest, begin) < 0 {
			continue
		}
		if end != nil && bytes.Compare(t.Meta.Smallest, end) > 0 {
			continue
		}
		out = append(out, t)
	}
	return out
}

// rangeOf returns the smallest/largest user key across tables, or
// (nil, nil) if tables is empty.
func rangeOf(tables []*Table) (smallest, largest []byte) {
	for i, t := range tables {
		if i == 0 || bytes.Compare(t.Meta.Smallest, smallest) < 0 {
			smallest = t.Meta.Smallest
		}
		if i == 0 || bytes.Compare(t.Meta.Largest, largest) > 0 {
			largest = t.Meta.Largest
		}
	}
	return smallest, largest
}

// cloneLevel returns a copy of a level's table slice, so that building a
// new Version never mutates one still in use.
func cloneLevel(level []*Table) []*Table {
	out := make([]*Table, len(level))
	copy(out, level)
	return out
}

// removeTables returns level with every table in victims removed,
// preserving order.
func removeTables(level []*Table, victims []*Table) []*Table {
	if len(victims) == 0 {
		return cloneLevel(level)
	}
	drop := make(map[uint64]bool, len(victims))
	for _, t := range victims {
		drop[t.Meta.TableID] = true
	}
	out := make([]*Table, 0, len(level))
	for _, t := range level {
		if !drop[t.Meta.TableID] {
			out = append(out, t)
		}
	}
	return out
}

// insertSorted inserts newTables into level (L1..L6, ascending-UK,
// disjoint) keeping ascending order by Smallest key.
func insertSorted(level []*Table, newTables []*Table) []*Table {
	out := append(cloneLevel(level), newTables...)
	sortTablesBySmallest(out)
	return out
}

// sortTablesBySmallest orders tables ascending by their Smallest user key
// (insertion sort: level counts are small, this runs on every commit).
func sortTablesBySmallest(tables []*Table) {
	for i := 1; i < len(tables); i++ {
		for j := i; j > 0 && bytes.Compare(tables[j].Meta.Smallest, tables[j-1].Meta.Smallest) < 0; j-- {
			tables[j], tables[j-1] = tables[j-1], tables[j]
		}
	}
}
