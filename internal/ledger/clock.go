package ledger

import (
	"context"
	"sync"
	"time"
)

// ManualClock is a settable clock.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

func NewManualClock(now uint64) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now, nil
}

// Set moves the clock to ts. Time never goes backwards.
func (c *ManualClock) Set(ts uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts > c.now {
		c.now = ts
	}
}

// Advance moves the clock forward by d seconds.
func (c *ManualClock) Advance(d uint64) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

func (SystemClock) Now(_ context.Context) (uint64, error) {
	return uint64(time.Now().Unix()), nil
}
