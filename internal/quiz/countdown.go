package quiz

import (
	"context"
	"sync"
	"time"
)

// Countdown runs a callback once per interval on its own goroutine. Starting
// it again replaces the running task, so at most one task is ever active.
type Countdown struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewCountdown(interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{interval: interval}
}

// Start cancels any running task and schedules fn every interval until Stop
// or the next Start.
func (c *Countdown) Start(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.run(ctx, fn)
}

// Stop cancels the running task. It does not wait for an in-flight callback,
// so it is safe to call from inside one.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Active reports whether a task is scheduled.
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *Countdown) run(ctx context.Context, fn func()) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}
