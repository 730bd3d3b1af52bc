package ratesvc

import (
	"context"
	"sync"
	"time"
)

// memoryLimiter is the single-instance fallback used when redis is not
// configured, and in tests.
type memoryLimiter struct {
	requests map[string][]time.Time
	window   time.Duration
	limit    int
	mu       sync.Mutex

	done      chan struct{}
	closeOnce sync.Once

	nowFunc func() time.Time // mocked in tests
}

var _ Limiter = (*memoryLimiter)(nil)

func NewMemoryLimiter(window time.Duration, limit int) *memoryLimiter {
	ml := &memoryLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		limit:    limit,
		done:     make(chan struct{}),
		nowFunc:  time.Now,
	}
	go ml.cleanupStaleEntries()
	return ml
}

// Close stops the background cleanup goroutine. Safe to call more than once.
func (ml *memoryLimiter) Close() error {
	ml.closeOnce.Do(func() { close(ml.done) })
	return nil
}

func (ml *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.nowFunc()
	windowStart := now.Add(-ml.window)

	var valid []time.Time
	for _, t := range ml.requests[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= ml.limit {
		ml.requests[key] = valid
		return false, nil
	}
	ml.requests[key] = append(valid, now)
	return true, nil
}

func (ml *memoryLimiter) cleanupStaleEntries() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ml.done:
			return
		case <-ticker.C:
			ml.sweep()
		}
	}
}

func (ml *memoryLimiter) sweep() {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	cutoff := ml.nowFunc().Add(-ml.window)
	for key, times := range ml.requests {
		var valid []time.Time
		for _, t := range times {
			if t.After(cutoff) {
				valid = append(valid, t)
			}
		}
		if len(valid) == 0 {
			delete(ml.requests, key)
		} else {
			ml.requests[key] = valid
		}
	}
}
