package table

import (
	blockpkg "github.com/vernedeng/risingwave/internal/block"
	"github.com/vernedeng/risingwave/internal/checksum"
	"github.com/vernedeng/risingwave/internal/compress"
	"github.com/vernedeng/risingwave/internal/filter"
)

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	// BlockSize is the soft target size, in bytes, of a data block
	// (spec §6 block_size).
	BlockSize int
	// RestartInterval is the number of entries between restart points in
	// a data block.
	RestartInterval int
	// ChecksumAlgo is the checksum algorithm applied to each data block
	// (spec §6 checksum_algo). It is recorded in the footer; the footer's
	// own checksum is always CRC32C.
	ChecksumAlgo checksum.Algorithm
	// Compression is the codec applied to each data block body before it
	// is written (supplemented feature; spec only requires
	// compressed-or-raw blocks).
	Compression compress.Algorithm
	// BloomBitsPerKey controls the table-level Bloom filter's target
	// false-positive rate (spec §6 bloom_false_positive). 0 disables the
	// filter.
	BloomBitsPerKey int
}

// DefaultBuilderOptions returns the defaults a Write Path table uses
// absent an override.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		BlockSize:       4096,
		RestartInterval: blockpkg.DefaultRestartInterval,
		ChecksumAlgo:    checksum.Crc32c,
		Compression:     compress.None,
		BloomBitsPerKey: 10,
	}
}

// Builder accumulates (FK, V) entries in ascending full-key order and
// produces a complete table (spec §4.2): data blocks, a block index,
// an optional Bloom filter, and a fixed footer.
type Builder struct {
	opts BuilderOptions

	w          offsetWriter
	dataBlock  *blockpkg.Builder
	indexBlock *blockpkg.Builder
	filter     *filter.Builder

	pendingIndexEntry bool
	pendingHandle     blockpkg.Handle
	lastKey           []byte

	numEntries    int
	numDataBlocks int

	finished bool
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts BuilderOptions) *Builder {
	if opts.BlockSize <= 0 {
		opts.BlockSize = 4096
	}
	if opts.RestartInterval <= 0 {
		opts.RestartInterval = blockpkg.DefaultRestartInterval
	}
	if !opts.ChecksumAlgo.Valid() {
		opts.ChecksumAlgo = checksum.Crc32c
	}

	b := &Builder{
		opts:       opts,
		dataBlock:  blockpkg.NewBuilder(opts.RestartInterval),
		indexBlock: blockpkg.NewBuilder(1),
	}
	if opts.BloomBitsPerKey > 0 {
		b.filter = filter.NewBuilder(opts.BloomBitsPerKey)
	}
	return b
}

// Add adds a full-key/value entry. Keys must be added in strictly
// ascending full-key order.
// REQUIRES: Finish has not been called.
func (b *Builder) Add(fk, value []byte, userKey []byte) {
	if b.finished {
		panic("table: Add called after Finish")
	}

	if b.pendingIndexEntry {
		b.indexBlock.Add(b.lastKey, b.pendingHandle.EncodeTo(nil))
		b.pendingIndexEntry = false
	}

	b.dataBlock.Add(fk, value)
	b.numEntries++
	if b.filter != nil {
		b.filter.AddKey(userKey)
	}
	b.lastKey = append(b.lastKey[:0], fk...)

	if b.dataBlock.EstimatedSize() >= b.opts.BlockSize {
		b.flushDataBlock()
	}
}

// NumEntries returns the number of entries added so far.
func (b *Builder) NumEntries() int {
	return b.numEntries
}

// EstimatedSize returns an estimate, in bytes, of the table's encoded
// size if Finish were called now (spec §4.2's builder.estimated_size()).
func (b *Builder) EstimatedSize() int {
	return int(b.w.offset) + b.dataBlock.EstimatedSize() + b.indexBlock.EstimatedSize()
}

func (b *Builder) flushDataBlock() {
	if b.dataBlock.Empty() {
		return
	}
	body := b.dataBlock.Finish()
	handle, err := writeDataBlock(&b.w, body, b.opts.Compression, b.opts.ChecksumAlgo)
	if err != nil {
		// offsetWriter is an in-memory accumulator; Write never fails.
		panic(err)
	}
	b.numDataBlocks++
	b.pendingHandle = handle
	b.pendingIndexEntry = true
	b.dataBlock.Reset()
}

// Finish completes the table and returns its serialized bytes.
// REQUIRES: Finish has not already been called.
func (b *Builder) Finish() []byte {
	b.flushDataBlock()
	if b.pendingIndexEntry {
		b.indexBlock.Add(b.lastKey, b.pendingHandle.EncodeTo(nil))
		b.pendingIndexEntry = false
	}

	indexOffset := b.w.offset
	indexBody := b.indexBlock.Finish()
	_, _ = b.w.Write(indexBody)
	indexLength := uint32(b.w.offset - indexOffset)

	var filterOffset uint64
	var filterLength uint32
	if b.filter != nil && b.filter.NumKeys() > 0 {
		filterOffset = b.w.offset
		filterBody := b.filter.Finish()
		_, _ = b.w.Write(filterBody)
		filterLength = uint32(b.w.offset - filterOffset)
	}

	footer := Footer{
		IndexOffset:  indexOffset,
		IndexLength:  indexLength,
		FilterOffset: filterOffset,
		FilterLength: filterLength,
		ChecksumAlgo: b.opts.ChecksumAlgo,
	}
	_, _ = b.w.Write(footer.Encode())

	b.finished = true
	return b.w.buf
}

// Empty reports whether no entry has been added since construction.
func (b *Builder) Empty() bool {
	return b.numEntries == 0
}
