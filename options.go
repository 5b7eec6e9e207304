package hummock

// options.go implements database configuration options.

import (
	"math"

	"github.com/vernedeng/risingwave/internal/checksum"
	"github.com/vernedeng/risingwave/internal/compress"
	"github.com/vernedeng/risingwave/internal/logging"
)

// Logger is an alias for the logging.Logger interface. This allows callers
// to pass their own logger implementation.
type Logger = logging.Logger

// ChecksumAlgo is an alias for the checksum algorithm type (spec §6
// checksum_algo).
type ChecksumAlgo = checksum.Algorithm

// Checksum algorithm constants.
const (
	ChecksumCrc32c   = checksum.Crc32c
	ChecksumXxHash64 = checksum.XxHash64
)

// CompressionAlgo is an alias for the block compression algorithm type
// (supplemented config option, see DOMAIN STACK).
type CompressionAlgo = compress.Algorithm

// Compression algorithm constants.
const (
	CompressionNone   = compress.None
	CompressionSnappy = compress.Snappy
	CompressionLZ4    = compress.LZ4
	CompressionZstd   = compress.Zstd
)

// Options contains all configuration for a Hummock state store (spec §6).
type Options struct {
	// TableSize is the target size, in bytes, of a single SST produced by
	// the write path or a compaction job. A batch larger than TableSize
	// still becomes one table (spec §4.2); compaction output rolls over
	// to a new table once a table reaches this size.
	// Default: 64MB
	TableSize int

	// BlockSize is the approximate size, in bytes, of a data block within
	// an SST (spec §6 block_size).
	// Default: 4KB
	BlockSize int

	// RestartInterval is the number of entries between restart points in
	// a data block (supplemented; the distillation doesn't name a
	// default, the teacher's block format does).
	// Default: 16
	RestartInterval int

	// BloomFalsePositiveRate controls the table-level Bloom filter's
	// target false-positive rate (spec §6 bloom_false_positive). It is
	// converted to a bits-per-key setting; 0 disables the filter.
	// Default: 0.01 (1%)
	BloomFalsePositiveRate float64

	// RemoteDir is the path prefix under which the object store keeps
	// SSTs (spec §6 remote_dir), e.g. "hummock/sst".
	RemoteDir string

	// ChecksumAlgo is the checksum algorithm stored in each table's
	// footer and verified on read (spec §6 checksum_algo, §9 "checksum
	// polymorphism").
	// Default: ChecksumCrc32c
	ChecksumAlgo ChecksumAlgo

	// CompressionAlgo is the codec applied to each data block body
	// before it is written (supplemented feature; spec only requires
	// blocks be "compressed-or-raw").
	// Default: CompressionNone
	CompressionAlgo CompressionAlgo

	// StatsEnabled turns on the Prometheus metrics registry (spec §6
	// stats_enabled). When false, Hummock never constructs a
	// metrics.Registry and passes nil through the write path and
	// compactor, both of which tolerate a nil registry.
	// Default: false
	StatsEnabled bool

	// L0CompactionTrigger is the number of L0 tables that triggers a
	// compaction of all of L0 into L1 (spec §4.6 compaction trigger).
	// Default: 4
	L0CompactionTrigger int

	// LevelSizeThreshold is the total byte size above which a level
	// L >= 1 becomes eligible for compaction into L+1.
	// Default: 256MB
	LevelSizeThreshold uint64

	// Logger receives structured log lines from the write path, version
	// manager, and compactor. If nil, a default logger writing to
	// stderr at LevelWarn is used.
	Logger Logger
}

// DefaultOptions returns a new Options with default values.
func DefaultOptions() *Options {
	return &Options{
		TableSize:              64 * 1024 * 1024,
		BlockSize:              4096,
		RestartInterval:        16,
		BloomFalsePositiveRate: 0.01,
		RemoteDir:              "hummock/sst",
		ChecksumAlgo:           ChecksumCrc32c,
		CompressionAlgo:        CompressionNone,
		StatsEnabled:           false,
		L0CompactionTrigger:    4,
		LevelSizeThreshold:     256 * 1024 * 1024,
		Logger:                 nil, // will use logging.NewDefaultLogger
	}
}

// bitsPerKeyFromFalsePositiveRate converts a target Bloom filter false
// positive rate into the bits-per-key setting internal/filter expects,
// using the standard Bloom filter relation bits/key ~= -log2(p) / ln(2).
// A non-positive rate disables the filter.
func bitsPerKeyFromFalsePositiveRate(p float64) int {
	if p <= 0 || p >= 1 {
		return 0
	}
	bits := -math.Log2(p) / math.Ln2
	if bits < 1 {
		return 1
	}
	return int(bits + 0.5)
}
