// Package prometheus exports lexigo operation metrics to Prometheus.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/lexigo"
)

// Collector implements lexigo.MetricsCollector.
type Collector struct {
	opLatency *prometheus.HistogramVec
	ops       *prometheus.CounterVec
	flushDocs prometheus.Counter
	deletes   prometheus.Counter
	matches   prometheus.Histogram
	purged    prometheus.Counter
	lastFlush prometheus.Gauge
}

var _ lexigo.MetricsCollector = (*Collector)(nil)

// NewCollector creates the metrics under namespace and registers them with
// reg. A nil reg selects prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of index operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Index operations by outcome",
		}, []string{"op", "status"}),
		flushDocs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_documents_total",
			Help:      "Documents committed by indexers",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletes_total",
			Help:      "Documents tombstoned by indexers",
		}),
		matches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_matches",
			Help:      "Total matches per top-K query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compaction_purged_documents_total",
			Help:      "Tombstoned documents removed by compaction",
		}),
		lastFlush: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_flush_operations",
			Help:      "Storage operations in the most recent flush",
		}),
	}
	for _, m := range []prometheus.Collector{c.opLatency, c.ops, c.flushDocs, c.deletes, c.matches, c.purged, c.lastFlush} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordFlush implements lexigo.MetricsCollector.
func (c *Collector) RecordFlush(docs, ops int, d time.Duration, err error) {
	c.observe("flush", d, err)
	c.lastFlush.Set(float64(ops))
	if err == nil {
		c.flushDocs.Add(float64(docs))
	}
}

// RecordDelete implements lexigo.MetricsCollector.
func (c *Collector) RecordDelete() {
	c.deletes.Inc()
}

// RecordQuery implements lexigo.MetricsCollector.
func (c *Collector) RecordQuery(_, matches int, d time.Duration, err error) {
	c.observe("query", d, err)
	if err == nil {
		c.matches.Observe(float64(matches))
	}
}

// RecordCompaction implements lexigo.MetricsCollector.
func (c *Collector) RecordCompaction(purged int, d time.Duration, err error) {
	c.observe("compaction", d, err)
	c.purged.Add(float64(purged))
}
