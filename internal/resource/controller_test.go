package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferBudget(t *testing.T) {
	c := New(Limits{BufferBytes: 100})

	assert.True(t, c.ReserveBuffer(50))
	assert.True(t, c.ReserveBuffer(40))
	assert.False(t, c.ReserveBuffer(20))

	c.ReleaseBuffer(50)
	assert.True(t, c.ReserveBuffer(20))
	assert.True(t, c.ReserveBuffer(30))
	assert.False(t, c.ReserveBuffer(1))
}

func TestBufferWithoutLimit(t *testing.T) {
	c := New(Limits{})
	assert.True(t, c.ReserveBuffer(1<<40))
	c.ReleaseBuffer(1 << 40)
	assert.True(t, c.ReserveBuffer(1<<40))
}

func expired(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestCompactionSlots(t *testing.T) {
	c := New(Limits{CompactionWorkers: 2})

	require.NoError(t, c.AcquireCompaction(t.Context()))
	require.NoError(t, c.AcquireCompaction(t.Context()))
	assert.Error(t, c.AcquireCompaction(expired(t)))

	c.ReleaseCompaction()
	assert.NoError(t, c.AcquireCompaction(expired(t)))
}

func TestDefaultSingleCompactionSlot(t *testing.T) {
	c := New(Limits{})
	require.NoError(t, c.AcquireCompaction(t.Context()))
	assert.Error(t, c.AcquireCompaction(expired(t)))
}

func TestThrottleCompaction(t *testing.T) {
	c := New(Limits{CompactionBytesPerSec: 1 << 20})

	start := time.Now()
	require.NoError(t, c.ThrottleCompaction(t.Context(), 1<<20+1024))
	assert.Less(t, time.Since(start), 2*time.Second)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.Error(t, c.ThrottleCompaction(ctx, 1<<20))
}

func TestNilController(t *testing.T) {
	var c *Controller
	assert.True(t, c.ReserveBuffer(1))
	c.ReleaseBuffer(1)
	require.NoError(t, c.AcquireCompaction(t.Context()))
	c.ReleaseCompaction()
	require.NoError(t, c.ThrottleCompaction(t.Context(), 10))
}
