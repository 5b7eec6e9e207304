package manifest

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrVersionConflict is returned by CommitCompaction when one of its
// input tables is no longer present in the current Version — a
// concurrent compaction retracted it first (spec §4.3
// commit_compaction, §7 VersionConflict).
var ErrVersionConflict = errors.New("manifest: compaction input no longer present in current version")

// Manager owns the current Version and publishes new ones under a single
// mutex (spec §4.3: "a global mutex serializes mutations; reads use the
// latest Version under a cheap read-copy-update").
type Manager struct {
	mu      sync.Mutex
	current *Version
	nextNum uint64

	// onObsolete is invoked, outside mu, once a table's refcount drops to
	// zero across every live Version. The write path and compactor wire
	// this to delete the table from the object store.
	onObsolete func(*Table)
}

// NewManager creates a Manager with an empty initial Version (refcount 1,
// held by the Manager itself as "current").
func NewManager(onObsolete func(*Table)) *Manager {
	m := &Manager{onObsolete: onObsolete}
	m.current = &Version{number: 0, refs: 1}
	return m
}

// Pin returns the current Version with an added refcount. The caller must
// call Unpin when done (typically via Snapshot's lifetime).
func (m *Manager) Pin() *Version {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Ref()
	return m.current
}

// Unpin releases a reference taken by Pin (or held internally across a
// publish). Safe to call concurrently with Pin/AddL0/CommitCompaction.
func (m *Manager) Unpin(v *Version) {
	v.Unref(m.onObsolete)
}

// Current returns the current Version without taking a reference; use
// only for read-only inspection that does not outlive the call (e.g.
// computing compaction scores before pinning).
func (m *Manager) Current() *Version {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Stats summarizes the current Version's level shape plus how many
// references it is currently holding, so callers (and tests asserting P2,
// P4, P7) can observe the manager's state without reaching into its
// unexported fields.
type Stats struct {
	VersionNumber uint64
	Pinned        int32
	LevelTables   [NumLevels]int
	LevelBytes    [NumLevels]uint64
}

// Stats returns a Stats snapshot of the current Version.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	v := m.current
	m.mu.Unlock()

	var s Stats
	s.VersionNumber = v.number
	s.Pinned = atomic.LoadInt32(&v.refs)
	for level := range NumLevels {
		tables := v.levels[level]
		s.LevelTables[level] = len(tables)
		for _, t := range tables {
			s.LevelBytes[level] += t.Meta.Size
		}
	}
	return s
}

// AddL0 publishes a new Version with table prepended to L0 (newest
// first), bumping the epoch high-water to table.Meta.MaxEpoch (spec §4.3
// add_l0, §4.5 Write Path step 6).
func (m *Manager) AddL0(t *Table) *Version {
	m.mu.Lock()

	var levels [NumLevels][]*Table
	for l := 1; l < NumLevels; l++ {
		levels[l] = m.current.levels[l]
	}
	levels[0] = append([]*Table{t}, m.current.levels[0]...)

	epoch := m.current.epochHighWater
	if t.Meta.MaxEpoch > epoch {
		epoch = t.Meta.MaxEpoch
	}

	nv := &Version{levels: levels, epochHighWater: epoch, refs: 1, number: m.nextNum + 1}
	m.nextNum++
	for level := range NumLevels {
		for _, tbl := range nv.levels[level] {
			tbl.Ref()
		}
	}

	old := m.current
	m.current = nv
	m.mu.Unlock()
	old.Unref(m.onObsolete)
	return nv
}

// CommitCompaction replaces inputs (drawn from sourceLevel and, for
// overlap, targetLevel) with outputs in targetLevel, publishing a new
// Version (spec §4.3 commit_compaction, §4.6 step 4). It fails with
// ErrVersionConflict if any input is no longer present in the current
// Version — a concurrent operation retracted it first.
func (m *Manager) CommitCompaction(inputs []*Table, outputs []*Table, sourceLevel, targetLevel int) (*Version, error) {
	m.mu.Lock()

	for _, in := range inputs {
		if !tableInLevel(m.current.levels[sourceLevel], in) && !tableInLevel(m.current.levels[targetLevel], in) {
			m.mu.Unlock()
			return nil, ErrVersionConflict
		}
	}

	var levels [NumLevels][]*Table
	for l := range NumLevels {
		levels[l] = m.current.levels[l]
	}
	levels[sourceLevel] = removeTables(levels[sourceLevel], inputs)
	if targetLevel != sourceLevel {
		levels[targetLevel] = removeTables(levels[targetLevel], inputs)
	}
	if targetLevel == 0 {
		levels[targetLevel] = append(outputs, levels[targetLevel]...)
	} else {
		levels[targetLevel] = insertSorted(levels[targetLevel], outputs)
	}

	nv := &Version{levels: levels, epochHighWater: m.current.epochHighWater, refs: 1, number: m.nextNum + 1}
	m.nextNum++
	for level := range NumLevels {
		for _, tbl := range nv.levels[level] {
			tbl.Ref()
		}
	}

	old := m.current
	m.current = nv
	m.mu.Unlock()
	old.Unref(m.onObsolete)
	return nv, nil
}

func tableInLevel(level []*Table, target *Table) bool {
	for _, t := range level {
		if t.Meta.TableID == target.Meta.TableID {
			return true
		}
	}
	return false
}
