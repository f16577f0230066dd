package ratelimit

import (
	"sync"
	"time"
)

// Limiter defines the interface for request throttling
type Limiter interface {
	// Wait blocks until the next request may proceed
	Wait()
	// Settle records a completed request; the settle delay starts counting
	// from this moment, success or failure
	Settle()
	// Reset clears the throttle state
	Reset()
}

// FixedInterval throttles requests by a constant settle delay. There is no
// adaptive component: every request consumes the same delay, which keeps the
// request rate predictable for the remote side.
type FixedInterval struct {
	delay       time.Duration
	lastSettled time.Time
	mu          sync.Mutex

	// sleep is swappable for tests
	sleep func(time.Duration)
}

// NewFixedInterval creates a fixed-interval throttle with the given delay.
func NewFixedInterval(delay time.Duration) *FixedInterval {
	return &FixedInterval{
		delay: delay,
		sleep: time.Sleep,
	}
}

// Wait blocks until the settle delay since the last completed request has
// elapsed.
func (fi *FixedInterval) Wait() {
	fi.mu.Lock()
	var remaining time.Duration
	if !fi.lastSettled.IsZero() {
		remaining = fi.delay - time.Since(fi.lastSettled)
	}
	fi.mu.Unlock()

	if remaining > 0 {
		fi.sleep(remaining)
	}
}

// Settle marks the completion of a request.
func (fi *FixedInterval) Settle() {
	fi.mu.Lock()
	fi.lastSettled = time.Now()
	fi.mu.Unlock()
}

// Reset clears the throttle state.
func (fi *FixedInterval) Reset() {
	fi.mu.Lock()
	fi.lastSettled = time.Time{}
	fi.mu.Unlock()
}
