package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryLimiter keeps one token bucket per policy and identity in process.
// A bucket of Limit tokens refilled over Window approximates the sliding window.
// Buckets idle for a full window are full again and get dropped.
type MemoryLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

const sweepInterval = time.Minute

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{limiters: make(map[string]*bucket), now: time.Now}
}

func (l *MemoryLimiter) getLimiter(policy Policy, identity string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
	}

	key := policy.Name + ":" + identity
	b, exists := l.limiters[key]
	if !exists {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Every(policy.Window/time.Duration(policy.Limit)), policy.Limit),
			window:  policy.Window,
		}
		l.limiters[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// sweep must be called with mu held.
func (l *MemoryLimiter) sweep(now time.Time) {
	for key, b := range l.limiters {
		if now.Sub(b.lastSeen) >= b.window {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *MemoryLimiter) Allow(_ context.Context, policy Policy, identity string) (Decision, error) {
	now := l.now()
	limiter := l.getLimiter(policy, identity, now)

	r := limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, Remaining: 0, ResetAt: now.Add(delay)}, nil
	}

	tokens := limiter.TokensAt(now)
	missing := float64(policy.Limit) - tokens
	refill := time.Duration(math.Ceil(missing * float64(policy.Window) / float64(policy.Limit)))
	return Decision{
		Allowed:   true,
		Remaining: int(math.Floor(tokens)),
		ResetAt:   now.Add(refill),
	}, nil
}

var _ Limiter = (*MemoryLimiter)(nil)
