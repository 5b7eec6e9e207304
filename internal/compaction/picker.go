// Package compaction implements Hummock's background compaction protocol:
// picking overlapping tables, merging them under a retention rule, and
// committing the result through the Version Manager (spec §4.6).
package compaction

import (
	"bytes"

	"github.com/vernedeng/risingwave/internal/manifest"
)

// Picker chooses the next compaction job, or reports none is needed
// (spec §4.6 step 2). "Simple policy: if |L0| >= trigger, compact all of
// L0 into L1; otherwise, for smallest L with size above its threshold,
// pick the table with least overlap in L+1 and all overlapping tables in
// L+1."
type Picker struct {
	// L0Trigger is the L0 file count that forces a compaction of all of
	// L0 into L1.
	L0Trigger int
	// LevelSizeThreshold is the byte size above which a level L >= 1 is
	// eligible for compaction.
	LevelSizeThreshold uint64
}

// DefaultPicker returns the picker a state store uses absent an
// override.
func DefaultPicker() *Picker {
	return &Picker{L0Trigger: 4, LevelSizeThreshold: 256 * 1024 * 1024}
}

// Plan describes one chosen compaction: a set of input tables drawn from
// SourceLevel (and the overlapping subset of TargetLevel), to be merged
// and republished into TargetLevel.
type Plan struct {
	SourceLevel int
	TargetLevel int
	Inputs      []*manifest.Table
}

// Pick selects the next compaction against v, or returns nil if none is
// needed.
func (p *Picker) Pick(v *manifest.Version) *Plan {
	if l0 := v.Tables(0); len(l0) >= p.L0Trigger {
		return p.pickL0(v, l0)
	}
	for level := 1; level < manifest.NumLevels-1; level++ {
		if levelSize(v.Tables(level)) < p.LevelSizeThreshold {
			continue
		}
		if plan := p.pickLevel(v, level); plan != nil {
			return plan
		}
	}
	return nil
}

// pickL0 compacts every L0 table into L1, taking along whatever L1
// tables their combined range overlaps.
func (p *Picker) pickL0(v *manifest.Version, l0 []*manifest.Table) *Plan {
	smallest, largest := rangeOf(l0)
	overlap := v.OverlappingInputs(1, smallest, largest)
	inputs := append(append([]*manifest.Table{}, l0...), overlap...)
	return &Plan{SourceLevel: 0, TargetLevel: 1, Inputs: inputs}
}

// pickLevel chooses the table with least overlap in level+1 and every
// level+1 table it overlaps.
func (p *Picker) pickLevel(v *manifest.Version, level int) *Plan {
	tables := v.Tables(level)
	if len(tables) == 0 {
		return nil
	}

	bestIdx := -1
	var bestOverlap []*manifest.Table
	for i, t := range tables {
		overlap := v.OverlappingInputs(level+1, t.Meta.Smallest, t.Meta.Largest)
		if bestIdx == -1 || len(overlap) < len(bestOverlap) {
			bestIdx = i
			bestOverlap = overlap
		}
	}

	inputs := append([]*manifest.Table{tables[bestIdx]}, bestOverlap...)
	return &Plan{SourceLevel: level, TargetLevel: level + 1, Inputs: inputs}
}

func levelSize(tables []*manifest.Table) uint64 {
	var total uint64
	for _, t := range tables {
		total += t.Meta.Size
	}
	return total
}

// rangeOf returns the smallest/largest user key spanned by tables.
func rangeOf(tables []*manifest.Table) (smallest, largest []byte) {
	for i, t := range tables {
		if i == 0 {
			smallest, largest = t.Meta.Smallest, t.Meta.Largest
			continue
		}
		if bytes.Compare(t.Meta.Smallest, smallest) < 0 {
			smallest = t.Meta.Smallest
		}
		if bytes.Compare(t.Meta.Largest, largest) > 0 {
			largest = t.Meta.Largest
		}
	}
	return smallest, largest
}
