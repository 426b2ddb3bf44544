package sync

import (
	"sync"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
	defaultCapDelay   = 30 * time.Second
)

// RetryScheduler owns the backoff state between failed cycles. Delays
// grow exponentially from baseDelay up to capDelay: 1s, 2s, 4s, ...
// The count resets on any successful cycle or a fresh online
// transition; an offline transition cancels a pending timer without
// resetting the count.
type RetryScheduler struct {
	mu         sync.Mutex
	maxRetries int
	baseDelay  time.Duration
	capDelay   time.Duration
	retryCount int
	timer      *time.Timer
	generation int
}

// NewRetryScheduler creates a scheduler with the given bounds; zero
// values select the defaults (3 retries, 1s base, 30s cap).
func NewRetryScheduler(maxRetries int, baseDelay, capDelay time.Duration) *RetryScheduler {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	if capDelay <= 0 {
		capDelay = defaultCapDelay
	}
	return &RetryScheduler{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		capDelay:   capDelay,
	}
}

// OnFailure records a failed cycle. While retries remain it arms a
// timer that invokes fire after the backoff delay and returns
// (delay, true); once retries are exhausted it returns (0, false) and
// the engine goes idle until an external trigger.
func (r *RetryScheduler) OnFailure(fire func()) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.retryCount++
	if r.retryCount >= r.maxRetries {
		return 0, false
	}

	delay := r.Delay(r.retryCount - 1)

	r.generation++
	gen := r.generation
	r.timer = time.AfterFunc(delay, func() {
		// A cancellation that raced the firing timer bumps the
		// generation; a stale timer must not trigger a cycle.
		r.mu.Lock()
		stale := gen != r.generation
		if !stale {
			r.timer = nil
		}
		r.mu.Unlock()
		if !stale {
			fire()
		}
	})
	return delay, true
}

// Delay returns the backoff for the n-th consecutive failure (n from 0).
func (r *RetryScheduler) Delay(n int) time.Duration {
	d := r.baseDelay
	for i := 0; i < n && d < r.capDelay; i++ {
		d *= 2
	}
	if d > r.capDelay {
		d = r.capDelay
	}
	return d
}

// CancelPending stops a scheduled retry, keeping the count.
func (r *RetryScheduler) CancelPending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
}

// Reset clears the failure count and any pending timer.
func (r *RetryScheduler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked()
	r.retryCount = 0
}

func (r *RetryScheduler) cancelLocked() {
	r.generation++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Count returns the current consecutive-failure count.
func (r *RetryScheduler) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryCount
}
