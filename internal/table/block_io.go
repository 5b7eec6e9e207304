package table

import (
	"context"
	"fmt"

	blockpkg "github.com/vernedeng/risingwave/internal/block"
	"github.com/vernedeng/risingwave/internal/checksum"
	"github.com/vernedeng/risingwave/internal/compress"
	"github.com/vernedeng/risingwave/internal/objstore"
)

// blockTrailerSuffixLength is the number of bytes writeDataBlock appends
// after a (possibly compressed) block body: a 1-byte compression
// algorithm tag, then a 4-byte checksum of body||tag.
const blockTrailerSuffixLength = 1 + 4

// ErrChecksumMismatch is returned when a stored block's checksum does not
// match its contents (spec §7 ChecksumMismatch).
var ErrChecksumMismatch = fmt.Errorf("table: checksum mismatch")

// writeDataBlock compresses a finished block.Builder body with algo,
// appends the compression tag and checksum trailer, writes it to w at the
// current offset, and returns the resulting Handle.
func writeDataBlock(w *offsetWriter, body []byte, compressAlgo compress.Algorithm, sumAlgo checksum.Algorithm) (blockpkg.Handle, error) {
	compressed, err := compress.Compress(compressAlgo, body)
	if err != nil {
		return blockpkg.Handle{}, fmt.Errorf("table: compress block: %w", err)
	}

	offset := w.offset
	if _, err := w.Write(compressed); err != nil {
		return blockpkg.Handle{}, err
	}

	sum, err := checksum.Compute(sumAlgo, append(append([]byte{}, compressed...), byte(compressAlgo)))
	if err != nil {
		return blockpkg.Handle{}, err
	}
	trailer := make([]byte, blockTrailerSuffixLength)
	trailer[0] = byte(compressAlgo)
	putUint32LE(trailer[1:], sum)
	if _, err := w.Write(trailer); err != nil {
		return blockpkg.Handle{}, err
	}

	return blockpkg.Handle{Offset: offset, Size: uint64(len(compressed) + blockTrailerSuffixLength)}, nil
}

// readDataBlock fetches and verifies the stored block at h, returning the
// decompressed block body ready for block.New.
func readDataBlock(ctx context.Context, store objstore.Store, path string, h blockpkg.Handle, sumAlgo checksum.Algorithm) ([]byte, error) {
	raw, err := store.Get(ctx, path, objstore.ByteRange{Offset: int64(h.Offset), Length: int64(h.Size)})
	if err != nil {
		return nil, err
	}
	if len(raw) < blockTrailerSuffixLength {
		return nil, fmt.Errorf("table: %w: block shorter than trailer", ErrChecksumMismatch)
	}

	compressed := raw[:len(raw)-blockTrailerSuffixLength]
	compressAlgo := compress.Algorithm(raw[len(raw)-blockTrailerSuffixLength])
	wantSum := getUint32LE(raw[len(raw)-4:])

	ok, err := checksum.Verify(sumAlgo, append(append([]byte{}, compressed...), byte(compressAlgo)), wantSum)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrChecksumMismatch
	}

	return compress.Decompress(compressAlgo, compressed, 0)
}

func putUint32LE(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func getUint32LE(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
}

// offsetWriter accumulates written bytes while tracking the current
// offset, so block handles can record their position as they're written.
type offsetWriter struct {
	buf    []byte
	offset uint64
}

func (w *offsetWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	w.offset += uint64(len(p))
	return len(p), nil
}
