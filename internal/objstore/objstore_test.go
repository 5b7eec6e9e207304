package objstore

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	if err := s.Put(ctx, "a/1.sst", []byte("hello world")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "a/1.sst", ByteRange{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hello world")) {
		t.Fatalf("Get() = %q, want %q", got, "hello world")
	}
}

func TestGetRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	_ = s.Put(ctx, "x", []byte("0123456789"))
	got, err := s.Get(ctx, "x", ByteRange{Offset: 3, Length: 4})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("3456")) {
		t.Fatalf("Get(range) = %q, want %q", got, "3456")
	}
}

func TestGetRangeOutOfBounds(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	_ = s.Put(ctx, "x", []byte("short"))
	if _, err := s.Get(ctx, "x", ByteRange{Offset: 0, Length: 100}); err == nil {
		t.Fatalf("expected out-of-bounds error")
	}
}

func TestGetMissingObject(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	_, err := s.Get(ctx, "missing", ByteRange{})
	var notFound *ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMissingIsNotError(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("Delete of missing object should not error, got %v", err)
	}
}

func TestSize(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	_ = s.Put(ctx, "x", []byte("abcde"))
	n, err := s.Size(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Fatalf("Size() = %d, want 5", n)
	}
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	_ = s.Put(ctx, "x", []byte("first"))
	_ = s.Put(ctx, "x", []byte("second-value"))
	got, _ := s.Get(ctx, "x", ByteRange{})
	if !bytes.Equal(got, []byte("second-value")) {
		t.Fatalf("Put should overwrite, got %q", got)
	}
}
