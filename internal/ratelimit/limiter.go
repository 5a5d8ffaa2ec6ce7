// Package ratelimit guards the write endpoints with per-client token buckets.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Decision is the answer for one request.
type Decision struct {
	Allowed bool
	// RetryAfter is how long the client should wait before the next token is
	// available. It is zero when Allowed is true.
	RetryAfter time.Duration
}

// Limiter allows or denies requests per client key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Bucket sizes a token bucket: Burst tokens that refill completely every
// Interval.
type Bucket struct {
	Burst    int
	Interval time.Duration
}

func (b Bucket) perToken() time.Duration {
	return b.Interval / time.Duration(b.Burst)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type memoryLimiter struct {
	mu        sync.Mutex
	bucket    Bucket
	idleTTL   time.Duration
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryLimiter returns an in-process Limiter. Buckets not used for idleTTL
// are evicted.
func NewMemoryLimiter(bucket Bucket, idleTTL time.Duration) Limiter {
	return newMemoryLimiter(bucket, idleTTL, time.Now)
}

func newMemoryLimiter(bucket Bucket, idleTTL time.Duration, now func() time.Time) *memoryLimiter {
	return &memoryLimiter{
		bucket:    bucket,
		idleTTL:   idleTTL,
		visitors:  make(map[string]*visitor),
		lastSweep: now(),
		now:       now,
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(l.bucket.perToken()), l.bucket.Burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return Decision{RetryAfter: l.bucket.Interval}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{RetryAfter: delay}, nil
	}
	return Decision{Allowed: true}, nil
}

func (l *memoryLimiter) sweep(now time.Time) {
	if l.idleTTL <= 0 || now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.idleTTL {
			delete(l.visitors, key)
		}
	}
	l.lastSweep = now
}

func (l *memoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
