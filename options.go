package lexigo

import (
	"time"

	"github.com/hupe1980/lexigo/analysis"
	"github.com/hupe1980/lexigo/codec"
	"github.com/hupe1980/lexigo/internal/compress"
	"github.com/hupe1980/lexigo/query"
)

// Compression selects how stored-field blobs are compressed.
type Compression uint8

const (
	// CompressionNone stores blobs verbatim.
	CompressionNone Compression = Compression(compress.None)
	// CompressionLZ4 favours speed.
	CompressionLZ4 Compression = Compression(compress.LZ4)
	// CompressionZstd favours ratio.
	CompressionZstd Compression = Compression(compress.Zstd)
)

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(s string) (Compression, error) {
	t, err := compress.ParseType(s)
	return Compression(t), err
}

func (c Compression) String() string { return compress.Type(c).String() }

const (
	// DefaultFlushThreshold is the number of buffered terms or stored values
	// after which an auto-flushing indexer commits at the next entry.
	DefaultFlushThreshold = 16384
	// DefaultCompactionRatio triggers compaction once tombstones exceed this
	// fraction of live documents.
	DefaultCompactionRatio = 0.2
	// DefaultCompactionBatchSize is the number of tombstones purged per pass.
	DefaultCompactionBatchSize = 1024
	// DefaultCompactionMaxBytes caps the bytes one pass deletes.
	DefaultCompactionMaxBytes = 8 << 20
)

type options struct {
	analyzer         analysis.Analyzer
	conventions      query.Conventions
	codec            codec.Codec
	compression      Compression
	metricsCollector MetricsCollector
	logger           *Logger

	flushThreshold int
	memoryLimit    int64

	autoCompaction      bool
	compactionRatio     float64
	compactionBatchSize int
	compactionMaxBytes  int
	compactionIOLimit   int64

	openTimeout     time.Duration
	initialMmapSize int
	noSync          bool
}

func defaultOptions() options {
	return options{
		analyzer:            analysis.DefaultAnalyzer(),
		conventions:         query.DefaultConventions(),
		codec:               codec.Default,
		compression:         CompressionNone,
		metricsCollector:    NoopMetricsCollector{},
		logger:              NoopLogger(),
		flushThreshold:      DefaultFlushThreshold,
		autoCompaction:      true,
		compactionRatio:     DefaultCompactionRatio,
		compactionBatchSize: DefaultCompactionBatchSize,
		compactionMaxBytes:  DefaultCompactionMaxBytes,
	}
}

// Option configures Open.
type Option func(*options)

// WithAnalyzer sets the analyzer used for indexed field values.
// If nil is passed, analysis.DefaultAnalyzer is used.
func WithAnalyzer(a analysis.Analyzer) Option {
	return func(o *options) {
		if a == nil {
			a = analysis.DefaultAnalyzer()
		}
		o.analyzer = a
	}
}

// WithConventions sets the tf/idf formulas. Nil formulas keep their defaults.
func WithConventions(c query.Conventions) Option {
	return func(o *options) {
		if c.Tf != nil {
			o.conventions.Tf = c.Tf
		}
		if c.Idf != nil {
			o.conventions.Idf = c.Idf
		}
	}
}

// WithCodec sets the stored-field codec for a newly created index. An
// existing index keeps the codec it was created with.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression sets how stored-field blobs written from now on are
// compressed. Existing blobs stay readable whatever the setting.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &lexigo.BasicMetricsCollector{}
//	idx, _ := lexigo.Open(path, lexigo.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example:
//
//	logger := lexigo.NewJSONLogger(slog.LevelDebug)
//	idx, _ := lexigo.Open(path, lexigo.WithLogger(logger))
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithFlushThreshold sets the buffered terms or stored values after which an
// auto-flushing indexer commits. Values <= 0 select DefaultFlushThreshold.
func WithFlushThreshold(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = DefaultFlushThreshold
		}
		o.flushThreshold = n
	}
}

// WithMemoryLimit caps the bytes all indexers of the index buffer between
// flushes. An auto-flushing indexer over its share commits at its next entry.
// Zero means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithAutoCompaction toggles background compaction after flushes.
func WithAutoCompaction(enabled bool) Option {
	return func(o *options) {
		o.autoCompaction = enabled
	}
}

// WithCompactionRatio sets the tombstone-to-live ratio above which
// compaction starts. Values <= 0 select DefaultCompactionRatio.
func WithCompactionRatio(ratio float64) Option {
	return func(o *options) {
		if ratio <= 0 {
			ratio = DefaultCompactionRatio
		}
		o.compactionRatio = ratio
	}
}

// WithCompactionBatch sets the tombstones per pass and the per-pass byte cap.
// Non-positive values keep the defaults.
func WithCompactionBatch(size, maxBytes int) Option {
	return func(o *options) {
		if size > 0 {
			o.compactionBatchSize = size
		}
		if maxBytes > 0 {
			o.compactionMaxBytes = maxBytes
		}
	}
}

// WithCompactionIOLimit throttles compaction to bytesPerSec of deletions.
// Zero means unlimited.
func WithCompactionIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.compactionIOLimit = bytesPerSec
	}
}

// WithOpenTimeout bounds how long Open waits for the file lock held by
// another process.
func WithOpenTimeout(d time.Duration) Option {
	return func(o *options) {
		o.openTimeout = d
	}
}

// WithInitialMmapSize sets the initial memory map size. A map large enough
// for the whole file keeps long-lived searchers from stalling commits.
func WithInitialMmapSize(bytes int) Option {
	return func(o *options) {
		o.initialMmapSize = bytes
	}
}

// WithNoSync skips fsync on commit. Committed data may be lost on a crash;
// intended for tests and rebuildable indexes.
func WithNoSync(noSync bool) Option {
	return func(o *options) {
		o.noSync = noSync
	}
}
