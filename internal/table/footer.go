// Package table implements the on-disk sorted-table (SST) format (spec
// §3, §4.2, §6): data blocks, a block index, an optional table-level
// Bloom filter, and a fixed-size footer. Layout, low to high offset:
//
//	[ blocks... ] [ block_index ] [ bloom_filter? ] [ footer ]
//
// Reference: darshanime-pebble sstable/table.go for the general
// parse-footer-then-lazily-load-blocks shape; aalhour/rockyardkv
// internal/block for the restart-point block format the blocks and index
// are built from.
package table

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vernedeng/risingwave/internal/checksum"
)

// Magic is the fixed footer magic number, the ASCII bytes "HU".
const Magic = 0x4855

// FormatVersion is the only footer version this package writes or reads.
const FormatVersion = 1

// FooterLength is the fixed, bit-stable size of a table's footer (spec
// §6). The tagged fields occupy the first 32 bytes; the remaining 8 are
// reserved for future use and currently written as zero.
const FooterLength = 40

// ErrBadMagic is returned when a footer's magic number does not match
// Magic.
var ErrBadMagic = errors.New("table: bad footer magic")

// ErrBadVersion is returned when a footer's version is not FormatVersion.
var ErrBadVersion = errors.New("table: unsupported footer version")

// ErrFooterChecksum is returned when the footer's own checksum does not
// verify.
var ErrFooterChecksum = errors.New("table: footer checksum mismatch")

// ErrTruncatedFooter is returned when fewer than FooterLength bytes are
// available to parse.
var ErrTruncatedFooter = errors.New("table: truncated footer")

// Footer is the fixed trailer written at the end of every table.
type Footer struct {
	IndexOffset    uint64
	IndexLength    uint32
	FilterOffset   uint64
	FilterLength   uint32
	ChecksumAlgo   checksum.Algorithm
	Version        uint8
	Magic          uint16
	FooterChecksum uint32
}

// Encode serializes f into a FooterLength-byte slice.
func (f Footer) Encode() []byte {
	buf := make([]byte, FooterLength)
	binary.LittleEndian.PutUint64(buf[0:8], f.IndexOffset)
	binary.LittleEndian.PutUint32(buf[8:12], f.IndexLength)
	binary.LittleEndian.PutUint64(buf[12:20], f.FilterOffset)
	binary.LittleEndian.PutUint32(buf[20:24], f.FilterLength)
	buf[24] = byte(f.ChecksumAlgo)
	buf[25] = FormatVersion
	binary.LittleEndian.PutUint16(buf[26:28], Magic)
	sum := checksum.Value(buf[:28])
	binary.LittleEndian.PutUint32(buf[28:32], sum)
	return buf
}

// DecodeFooter parses a FooterLength-byte slice produced by Encode.
func DecodeFooter(data []byte) (Footer, error) {
	if len(data) < FooterLength {
		return Footer{}, ErrTruncatedFooter
	}
	data = data[len(data)-FooterLength:]

	var f Footer
	f.IndexOffset = binary.LittleEndian.Uint64(data[0:8])
	f.IndexLength = binary.LittleEndian.Uint32(data[8:12])
	f.FilterOffset = binary.LittleEndian.Uint64(data[12:20])
	f.FilterLength = binary.LittleEndian.Uint32(data[20:24])
	f.ChecksumAlgo = checksum.Algorithm(data[24])
	f.Version = data[25]
	f.Magic = binary.LittleEndian.Uint16(data[26:28])
	f.FooterChecksum = binary.LittleEndian.Uint32(data[28:32])

	if f.Magic != Magic {
		return Footer{}, ErrBadMagic
	}
	if f.Version != FormatVersion {
		return Footer{}, ErrBadVersion
	}
	if checksum.Value(data[:28]) != f.FooterChecksum {
		return Footer{}, ErrFooterChecksum
	}
	if !f.ChecksumAlgo.Valid() {
		return Footer{}, fmt.Errorf("table: %w: algorithm %s", ErrBadMagic, f.ChecksumAlgo)
	}
	return f, nil
}
