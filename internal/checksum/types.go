// Package checksum implements the two checksum algorithms Hummock's table
// footer can be configured with (spec §6 checksum_algo, §9 "checksum
// polymorphism"): CRC32C and XxHash64. Readers dispatch on the algorithm tag
// stored in the footer rather than hardwiring one algorithm.
//
// Reference: aalhour/rockyardkv internal/checksum.
package checksum

import "fmt"

// Algorithm identifies a checksum algorithm. It is stored as a single byte
// in the table footer (spec §6).
type Algorithm uint8

const (
	// Crc32c is CRC-32 with the Castagnoli polynomial.
	Crc32c Algorithm = 0
	// XxHash64 is the 64-bit xxHash algorithm, truncated to 32 bits for the
	// on-disk checksum field.
	XxHash64 Algorithm = 1
)

func (a Algorithm) String() string {
	switch a {
	case Crc32c:
		return "Crc32c"
	case XxHash64:
		return "XxHash64"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	return a == Crc32c || a == XxHash64
}

// Compute returns the checksum of data under algorithm a.
func Compute(a Algorithm, data []byte) (uint32, error) {
	switch a {
	case Crc32c:
		return Value(data), nil
	case XxHash64:
		return uint32(XXHash64(data)), nil
	default:
		return 0, fmt.Errorf("checksum: unsupported algorithm %s", a)
	}
}

// Verify recomputes the checksum of data under algorithm a and compares it
// to want, returning false on mismatch.
func Verify(a Algorithm, data []byte, want uint32) (bool, error) {
	got, err := Compute(a, data)
	if err != nil {
		return false, err
	}
	return got == want, nil
}
