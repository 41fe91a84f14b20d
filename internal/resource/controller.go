package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limits are the budgets of one index. Zero values mean unlimited, except
// CompactionWorkers where zero means one.
type Limits struct {
	// BufferBytes caps the bytes all indexers hold between flushes.
	BufferBytes int64
	// CompactionWorkers caps concurrent compaction runs.
	CompactionWorkers int64
	// CompactionBytesPerSec caps the key bytes compaction deletes per second.
	CompactionBytesPerSec int64
}

// Controller enforces Limits.
type Controller struct {
	buffers *semaphore.Weighted // nil if unlimited

	compaction *semaphore.Weighted
	deletes    *rate.Limiter // nil if unlimited
}

// New returns a controller enforcing l.
func New(l Limits) *Controller {
	if l.CompactionWorkers <= 0 {
		l.CompactionWorkers = 1
	}
	c := &Controller{compaction: semaphore.NewWeighted(l.CompactionWorkers)}
	if l.BufferBytes > 0 {
		c.buffers = semaphore.NewWeighted(l.BufferBytes)
	}
	if l.CompactionBytesPerSec > 0 {
		c.deletes = rate.NewLimiter(rate.Limit(l.CompactionBytesPerSec), int(l.CompactionBytesPerSec))
	}
	return c
}

// ReserveBuffer accounts n buffered bytes without blocking. It reports false,
// reserving nothing, when the budget cannot hold them.
func (c *Controller) ReserveBuffer(n int64) bool {
	if c == nil || n <= 0 {
		return true
	}
	return c.buffers == nil || c.buffers.TryAcquire(n)
}

// ReleaseBuffer returns n bytes taken by ReserveBuffer.
func (c *Controller) ReleaseBuffer(n int64) {
	if c == nil || c.buffers == nil || n <= 0 {
		return
	}
	c.buffers.Release(n)
}

// AcquireCompaction blocks until a compaction slot is free or ctx ends.
func (c *Controller) AcquireCompaction(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.compaction.Acquire(ctx, 1)
}

// ReleaseCompaction frees a compaction slot.
func (c *Controller) ReleaseCompaction() {
	if c == nil {
		return
	}
	c.compaction.Release(1)
}

// ThrottleCompaction waits until n deleted bytes fit the compaction budget.
// Amounts above one second of budget are paid in installments.
func (c *Controller) ThrottleCompaction(ctx context.Context, n int) error {
	if c == nil || c.deletes == nil || n <= 0 {
		return nil
	}
	burst := c.deletes.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.deletes.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
