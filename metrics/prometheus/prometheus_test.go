package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg, "lexigo")
	require.NoError(t, err)

	c.RecordFlush(3, 40, time.Millisecond, nil)
	c.RecordFlush(1, 5, time.Millisecond, errors.New("boom"))
	c.RecordDelete()
	c.RecordDelete()
	c.RecordQuery(10, 7, time.Millisecond, nil)
	c.RecordCompaction(2, time.Second, nil)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.flushDocs))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.lastFlush))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.deletes))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.purged))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ops.WithLabelValues("flush", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ops.WithLabelValues("flush", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ops.WithLabelValues("query", "success")))

	n, err := testutil.GatherAndCount(reg, "lexigo_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCollectorDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg, "lexigo")
	require.NoError(t, err)

	_, err = NewCollector(reg, "lexigo")
	assert.Error(t, err)
}
