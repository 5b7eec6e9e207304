package filter

import (
	"fmt"
	"testing"
)

func TestNoFalseNegatives(t *testing.T) {
	b := NewBuilder(10)
	keys := make([][]byte, 0, 1000)
	for i := range 1000 {
		k := []byte(fmt.Sprintf("user-key-%05d", i))
		keys = append(keys, k)
		b.AddKey(k)
	}
	data := b.Finish()
	r := NewReader(data)
	if r == nil {
		t.Fatalf("NewReader returned nil for a nonempty filter")
	}
	for _, k := range keys {
		if !r.MayContain(k) {
			t.Fatalf("false negative for key %q", k)
		}
	}
}

func TestFalsePositiveRateIsBounded(t *testing.T) {
	b := NewBuilder(10)
	for i := range 10000 {
		b.AddKey([]byte(fmt.Sprintf("present-%06d", i)))
	}
	r := NewReader(b.Finish())

	falsePositives := 0
	const trials = 10000
	for i := range trials {
		if r.MayContain([]byte(fmt.Sprintf("absent-%06d", i))) {
			falsePositives++
		}
	}
	// 10 bits/key targets ~1% FPR; allow generous headroom for a loose bound.
	if rate := float64(falsePositives) / trials; rate > 0.05 {
		t.Fatalf("false positive rate too high: %f", rate)
	}
}

func TestEmptyFilterRejectsEverything(t *testing.T) {
	b := NewBuilder(10)
	r := NewReader(b.Finish())
	if r.MayContain([]byte("anything")) {
		t.Fatalf("empty filter should never report a match")
	}
}

func TestReaderRejectsShortData(t *testing.T) {
	if NewReader([]byte{1, 2}) != nil {
		t.Fatalf("NewReader should reject data shorter than MetadataLen")
	}
}

func TestResetClearsBuilder(t *testing.T) {
	b := NewBuilder(10)
	b.AddKey([]byte("a"))
	b.AddKey([]byte("b"))
	b.Reset()
	if b.NumKeys() != 0 {
		t.Fatalf("Reset() left %d keys", b.NumKeys())
	}
}
