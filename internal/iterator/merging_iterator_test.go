package iterator

import (
	"bytes"
	"sort"
	"testing"
)

// sliceIterator is a trivial Iterator over an in-memory sorted key/value
// slice, used to test MergingIterator without building real tables.
type sliceIterator struct {
	keys   [][]byte
	values [][]byte
	pos    int
}

func newSliceIterator(pairs map[string]string) *sliceIterator {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	it := &sliceIterator{pos: -1}
	for _, k := range keys {
		it.keys = append(it.keys, []byte(k))
		it.values = append(it.values, []byte(pairs[k]))
	}
	return it
}

func (s *sliceIterator) Valid() bool { return s.pos >= 0 && s.pos < len(s.keys) }
func (s *sliceIterator) Key() []byte { return s.keys[s.pos] }
func (s *sliceIterator) Value() []byte { return s.values[s.pos] }
func (s *sliceIterator) Error() error { return nil }

func (s *sliceIterator) SeekToFirst() { s.pos = 0 }
func (s *sliceIterator) SeekToLast()  { s.pos = len(s.keys) - 1 }
func (s *sliceIterator) Next()        { s.pos++ }
func (s *sliceIterator) Prev()        { s.pos-- }

func (s *sliceIterator) Seek(target []byte) {
	s.pos = sort.Search(len(s.keys), func(i int) bool {
		return bytes.Compare(s.keys[i], target) >= 0
	})
}

func TestMergingIteratorOrdersAcrossChildren(t *testing.T) {
	a := newSliceIterator(map[string]string{"a": "1", "c": "3", "e": "5"})
	b := newSliceIterator(map[string]string{"b": "2", "d": "4"})
	mi := NewMergingIterator([]Iterator{a, b})
	mi.SeekToFirst()

	var got []string
	for mi.Valid() {
		got = append(got, string(mi.Key())+"="+string(mi.Value()))
		mi.Next()
	}
	want := []string{"a=1", "b=2", "c=3", "d=4", "e=5"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMergingIteratorSeek(t *testing.T) {
	a := newSliceIterator(map[string]string{"a": "1", "c": "3"})
	b := newSliceIterator(map[string]string{"b": "2", "d": "4"})
	mi := NewMergingIterator([]Iterator{a, b})
	mi.Seek([]byte("c"))
	if !mi.Valid() || string(mi.Key()) != "c" {
		t.Fatalf("Seek(c) landed on %q, want c", mi.Key())
	}
}

func TestMergingIteratorEmptyChildren(t *testing.T) {
	mi := NewMergingIterator(nil)
	mi.SeekToFirst()
	if mi.Valid() {
		t.Fatalf("expected invalid iterator over no children")
	}
}
