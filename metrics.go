package lexigo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prometheus package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordFlush is called after each indexer commit attempt.
	// docs is the number of entries written, ops the number of storage
	// operations in the batch.
	RecordFlush(docs, ops int, duration time.Duration, err error)

	// RecordDelete is called once per document a committed flush tombstones.
	RecordDelete()

	// RecordQuery is called after each QueryTop. take is the requested limit
	// and matches the total number of matches.
	RecordQuery(take, matches int, duration time.Duration, err error)

	// RecordCompaction is called after each compaction run with the number of
	// purged documents.
	RecordCompaction(purged int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFlush(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordDelete()                              {}
func (NoopMetricsCollector) RecordQuery(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordCompaction(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FlushCount       atomic.Int64
	FlushErrors      atomic.Int64
	FlushDocs        atomic.Int64
	FlushTotalNanos  atomic.Int64
	DeleteCount      atomic.Int64
	QueryCount       atomic.Int64
	QueryErrors      atomic.Int64
	QueryTotalNanos  atomic.Int64
	CompactionCount  atomic.Int64
	CompactionErrors atomic.Int64
	CompactionPurged atomic.Int64
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(docs, _ int, duration time.Duration, err error) {
	b.FlushCount.Add(1)
	b.FlushTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FlushErrors.Add(1)
		return
	}
	b.FlushDocs.Add(int64(docs))
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete() {
	b.DeleteCount.Add(1)
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_, _ int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordCompaction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompaction(purged int, _ time.Duration, err error) {
	b.CompactionCount.Add(1)
	b.CompactionPurged.Add(int64(purged))
	if err != nil {
		b.CompactionErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FlushCount:       b.FlushCount.Load(),
		FlushErrors:      b.FlushErrors.Load(),
		FlushDocs:        b.FlushDocs.Load(),
		FlushAvgNanos:    avg(b.FlushTotalNanos.Load(), b.FlushCount.Load()),
		DeleteCount:      b.DeleteCount.Load(),
		QueryCount:       b.QueryCount.Load(),
		QueryErrors:      b.QueryErrors.Load(),
		QueryAvgNanos:    avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		CompactionCount:  b.CompactionCount.Load(),
		CompactionErrors: b.CompactionErrors.Load(),
		CompactionPurged: b.CompactionPurged.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FlushCount       int64
	FlushErrors      int64
	FlushDocs        int64
	FlushAvgNanos    int64
	DeleteCount      int64
	QueryCount       int64
	QueryErrors      int64
	QueryAvgNanos    int64
	CompactionCount  int64
	CompactionErrors int64
	CompactionPurged int64
}
