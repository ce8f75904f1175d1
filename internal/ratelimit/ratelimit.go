package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter enforces a minimum gap between consecutive requests sharing a key
// (one key per listing platform or forum host).
type Limiter struct {
	mu        sync.Mutex
	next      map[string]time.Time // earliest time the next request for key may start
	minDelay  time.Duration
	overrides map[string]time.Duration
}

// NewLimiter creates a limiter with a default gap and optional per-key overrides.
func NewLimiter(minDelay time.Duration, overrides map[string]time.Duration) *Limiter {
	if overrides == nil {
		overrides = map[string]time.Duration{}
	}
	return &Limiter{
		next:      make(map[string]time.Time),
		minDelay:  minDelay,
		overrides: overrides,
	}
}

// DelayFor returns the gap enforced for key.
func (l *Limiter) DelayFor(key string) time.Duration {
	if d, ok := l.overrides[key]; ok {
		return d
	}
	return l.minDelay
}

// Wait blocks until the caller may issue a request for key. Slots are
// reserved under the lock, so concurrent callers queue up one gap apart.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	l.mu.Lock()
	now := time.Now()
	slot := l.next[key]
	if slot.Before(now) {
		slot = now
	}
	l.next[key] = slot.Add(l.DelayFor(key))
	l.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", key, ctx.Err())
	case <-timer.C:
		return nil
	}
}
