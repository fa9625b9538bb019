package kv

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Compression selects the block compression algorithm for the KV
// configuration surface.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionLZ4    Compression = "lz4"
	CompressionZSTD   Compression = "zstd"
	CompressionSnappy Compression = "snappy"
)

// Options is the KV configuration surface. Every field has a sane default
// (see DefaultOptions) so callers only need to override what they care
// about.
type Options struct {
	DBPath   string
	WALDir   string
	DBPaths  []string

	MemtableSizeMB      int
	BlockCacheSizeMB    int
	BloomBitsPerKey     int
	EnableWAL           bool
	MaxBackgroundJobs   int
	CompressionDefault  Compression
	CompressionBottommost Compression
	UseDirectReads      bool
	UseDirectIOForFlushAndCompaction bool
	DynamicLevelBytes   bool
	TargetFileSizeBaseMB int
	MaxBytesForLevelBaseMB int

	ReadOnly bool
	InMemory bool
}

// DefaultOptions returns a reasonable starting configuration: every knob
// is exposed, but defaulted so most callers need not touch it.
func DefaultOptions(dbPath string) Options {
	return Options{
		DBPath:                 dbPath,
		MemtableSizeMB:         64,
		BlockCacheSizeMB:       256,
		BloomBitsPerKey:        10,
		EnableWAL:              true,
		MaxBackgroundJobs:      4,
		CompressionDefault:     CompressionZSTD,
		CompressionBottommost:  CompressionZSTD,
		DynamicLevelBytes:      true,
		TargetFileSizeBaseMB:   64,
		MaxBytesForLevelBaseMB: 256,
	}
}

func (o Options) toBadger() badger.Options {
	bo := badger.DefaultOptions(o.DBPath)
	if o.InMemory {
		bo = bo.WithInMemory(true)
	}
	if o.WALDir != "" {
		bo = bo.WithValueDir(o.WALDir)
	}
	bo = bo.
		WithMemTableSize(int64(o.MemtableSizeMB) << 20).
		WithBlockCacheSize(int64(o.BlockCacheSizeMB) << 20).
		WithBloomFalsePositive(bloomFromBits(o.BloomBitsPerKey)).
		WithSyncWrites(o.EnableWAL).
		WithNumCompactors(max(o.MaxBackgroundJobs, 2)).
		WithCompression(compressionOf(o.CompressionDefault)).
		WithReadOnly(o.ReadOnly)
	return bo
}

func compressionOf(c Compression) options.CompressionType {
	switch c {
	case CompressionZSTD:
		return options.ZSTD
	case CompressionSnappy, CompressionLZ4:
		return options.Snappy
	default:
		return options.None
	}
}

// bloomFromBits approximates a bits-per-key setting as a false-positive
// rate, since badger's bloom filter is configured by target FP rate rather
// than bits-per-key directly.
func bloomFromBits(bits int) float64 {
	if bits <= 0 {
		return 0.01
	}
	switch {
	case bits >= 16:
		return 0.001
	case bits >= 10:
		return 0.01
	default:
		return 0.05
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
