package tmdb

import (
	"sync"
	"time"
)

// rateLimiter implements a simple sliding window rate limiter
type rateLimiter struct {
	mu          sync.Mutex
	requests    []time.Time
	maxRequests int
	window      time.Duration
}

func newRateLimiter(maxRequests int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// wait blocks until a request can be made within rate limits.
func (r *rateLimiter) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.pruneLocked(now)

	if len(r.requests) < r.maxRequests {
		r.requests = append(r.requests, now)
		return
	}

	// Wait until the oldest request ages out of the window, with a small
	// buffer so it has actually expired.
	oldest := r.requests[0]
	waitTime := r.window - now.Sub(oldest) + 10*time.Millisecond

	r.mu.Unlock()
	time.Sleep(waitTime)
	r.mu.Lock()

	now = time.Now()
	r.pruneLocked(now)
	r.requests = append(r.requests, now)
}

// pruneLocked drops requests outside the window. Caller holds the mutex.
func (r *rateLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.window)
	valid := make([]time.Time, 0, r.maxRequests)
	for _, req := range r.requests {
		if req.After(cutoff) {
			valid = append(valid, req)
		}
	}
	r.requests = valid
}
