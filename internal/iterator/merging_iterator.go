package iterator

import (
	"bytes"
	"container/heap"
)

// MergingIterator merges multiple sorted child iterators into one,
// using a min-heap keyed on the current full key (spec §4.4
// MergingIterator). Children are typically TableIterators, one per live
// table in the pinned Version.
type MergingIterator struct {
	children []Iterator
	heap     *iterHeap
	current  int
	err      error
}

// NewMergingIterator creates a MergingIterator over children. Ties are
// broken by the children's slice order: pass L0 tables newest-first so an
// equal-key tie (which should not arise, since table_id = epoch makes
// every full key unique) still favors the newer table.
func NewMergingIterator(children []Iterator) *MergingIterator {
	return &MergingIterator{
		children: children,
		heap:     &iterHeap{items: make([]heapItem, 0, len(children))},
		current:  -1,
	}
}

func (mi *MergingIterator) Valid() bool {
	return mi.current >= 0 && mi.current < len(mi.children)
}

func (mi *MergingIterator) Key() []byte {
	if !mi.Valid() {
		return nil
	}
	return mi.children[mi.current].Key()
}

func (mi *MergingIterator) Value() []byte {
	if !mi.Valid() {
		return nil
	}
	return mi.children[mi.current].Value()
}

func (mi *MergingIterator) Error() error {
	return mi.err
}

func (mi *MergingIterator) SeekToFirst() {
	mi.err = nil
	mi.heap.items = mi.heap.items[:0]
	for i, child := range mi.children {
		child.SeekToFirst()
		if mi.collectChild(i, child) {
			return
		}
	}
	heap.Init(mi.heap)
	mi.findSmallest()
}

func (mi *MergingIterator) Seek(target []byte) {
	mi.err = nil
	mi.heap.items = mi.heap.items[:0]
	for i, child := range mi.children {
		child.Seek(target)
		if mi.collectChild(i, child) {
			return
		}
	}
	heap.Init(mi.heap)
	mi.findSmallest()
}

// SeekToLast positions at the largest key across all children. Reverse
// iteration is rare on this path (range scans walk forward), so this
// scans children directly rather than maintaining a max-heap.
func (mi *MergingIterator) SeekToLast() {
	mi.err = nil
	mi.current = -1
	largestIdx := -1
	var largestKey []byte
	for i, child := range mi.children {
		child.SeekToLast()
		if child.Valid() {
			if largestIdx == -1 || bytes.Compare(child.Key(), largestKey) > 0 {
				largestIdx = i
				largestKey = child.Key()
			}
		}
		if err := child.Error(); err != nil {
			mi.err = err
			return
		}
	}
	mi.current = largestIdx
}

func (mi *MergingIterator) Next() {
	if !mi.Valid() {
		return
	}
	mi.children[mi.current].Next()
	if mi.children[mi.current].Valid() {
		mi.heap.items[0].key = mi.children[mi.current].Key()
		heap.Fix(mi.heap, 0)
	} else {
		heap.Pop(mi.heap)
	}
	if err := mi.children[mi.current].Error(); err != nil {
		mi.err = err
		mi.current = -1
		return
	}
	mi.findSmallest()
}

// Prev moves to the preceding entry by rescanning all children, since the
// heap here is only maintained in min order.
func (mi *MergingIterator) Prev() {
	if !mi.Valid() {
		return
	}
	currentKey := append([]byte(nil), mi.children[mi.current].Key()...)
	mi.children[mi.current].Prev()

	largestIdx := -1
	var largestKey []byte
	for i, child := range mi.children {
		if child.Valid() && bytes.Compare(child.Key(), currentKey) < 0 {
			if largestIdx == -1 || bytes.Compare(child.Key(), largestKey) > 0 {
				largestIdx = i
				largestKey = child.Key()
			}
		}
		if err := child.Error(); err != nil {
			mi.err = err
			mi.current = -1
			return
		}
	}
	mi.current = largestIdx
}

func (mi *MergingIterator) collectChild(i int, child Iterator) (aborted bool) {
	if child.Valid() {
		mi.heap.items = append(mi.heap.items, heapItem{index: i, key: child.Key()})
	}
	if err := child.Error(); err != nil {
		mi.err = err
		mi.current = -1
		return true
	}
	return false
}

func (mi *MergingIterator) findSmallest() {
	if mi.heap.Len() == 0 {
		mi.current = -1
		return
	}
	mi.current = mi.heap.items[0].index
}

type heapItem struct {
	index int
	key   []byte
}

type iterHeap struct {
	items []heapItem
}

func (h *iterHeap) Len() int { return len(h.items) }

func (h *iterHeap) Less(i, j int) bool {
	if c := bytes.Compare(h.items[i].key, h.items[j].key); c != 0 {
		return c < 0
	}
	return h.items[i].index < h.items[j].index
}

func (h *iterHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *iterHeap) Push(x any) {
	item, ok := x.(heapItem)
	if ok {
		h.items = append(h.items, item)
	}
}

func (h *iterHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
