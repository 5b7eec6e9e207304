package compress

import (
	"bytes"
	"testing"
)

func TestRoundTripAllAlgorithms(t *testing.T) {
	data := bytes.Repeat([]byte("hummock-block-body-payload"), 64)
	for _, algo := range []Algorithm{None, Snappy, LZ4, Zstd} {
		compressed, err := Compress(algo, data)
		if err != nil {
			t.Fatalf("Compress(%s): %v", algo, err)
		}
		got, err := Decompress(algo, compressed, len(data))
		if err != nil {
			t.Fatalf("Decompress(%s): %v", algo, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("Decompress(%s) round trip mismatch", algo)
		}
	}
}

func TestNoneIsIdentity(t *testing.T) {
	data := []byte("raw bytes")
	out, err := Compress(None, data)
	if err != nil {
		t.Fatal(err)
	}
	if &out[0] != &data[0] {
		t.Fatalf("None compression should return the same backing array")
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	if _, err := Compress(Algorithm(200), []byte("x")); err == nil {
		t.Fatalf("expected error for unsupported algorithm")
	}
	if _, err := Decompress(Algorithm(200), []byte("x"), 0); err == nil {
		t.Fatalf("expected error for unsupported algorithm")
	}
}

func TestLZ4WithoutExpectedSize(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 4096)
	compressed, err := Compress(LZ4, data)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decompress(LZ4, compressed, 0)
	if err != nil {
		t.Fatalf("Decompress without expected size: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch without expected size")
	}
}
