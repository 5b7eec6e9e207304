package dbformat

import (
	"bytes"
	"testing"
)

func TestKeyWithEpochRoundTrip(t *testing.T) {
	fk := KeyWithEpoch([]byte("aa"), 42)
	uk, epoch, err := Split(fk)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(uk, []byte("aa")) {
		t.Fatalf("UserKey() = %q, want %q", uk, "aa")
	}
	if epoch != 42 {
		t.Fatalf("EpochOf() = %d, want 42", epoch)
	}
}

func TestEqualUserKeyHigherEpochSortsFirst(t *testing.T) {
	low := KeyWithEpoch([]byte("aa"), 1)
	high := KeyWithEpoch([]byte("aa"), 2)
	if bytes.Compare(high, low) >= 0 {
		t.Fatalf("expected epoch=2 full key to sort before epoch=1 under byte comparison")
	}
}

func TestDifferentUserKeysSortByUK(t *testing.T) {
	a := KeyWithEpoch([]byte("aa"), 100)
	b := KeyWithEpoch([]byte("bb"), 0)
	if bytes.Compare(a, b) >= 0 {
		t.Fatalf("expected uk=aa to sort before uk=bb regardless of epoch")
	}
}

func TestSplitRejectsShortKey(t *testing.T) {
	if _, _, err := Split([]byte("short")); err != ErrMalformedFullKey {
		t.Fatalf("expected ErrMalformedFullKey, got %v", err)
	}
}

func TestValidateUserKeyRejectsEmpty(t *testing.T) {
	if err := ValidateUserKey(nil); err != ErrEmptyUserKey {
		t.Fatalf("expected ErrEmptyUserKey, got %v", err)
	}
	if err := ValidateUserKey([]byte("a")); err != nil {
		t.Fatalf("unexpected error for nonempty key: %v", err)
	}
}
