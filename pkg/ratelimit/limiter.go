package ratelimit

import (
	"sync"
	"time"
)

// bucket is a token bucket refilled continuously at refillRate tokens per
// second up to capacity.
type bucket struct {
	tokens     float64
	lastRefill time.Time
	lastUsed   time.Time
}

// Limiter tracks one token bucket per key. Idle buckets are swept after the
// configured TTL so per-visitor and per-IP keys do not accumulate forever.
type Limiter struct {
	capacity   int
	refillRate float64
	ttl        time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	swept   time.Time
}

// NewLimiter creates a keyed limiter allowing bursts of capacity and a
// sustained refillRate requests per second per key. ttl of zero keeps
// buckets forever.
func NewLimiter(capacity int, refillRate float64, ttl time.Duration) *Limiter {
	return &Limiter{
		capacity:   capacity,
		refillRate: refillRate,
		ttl:        ttl,
		buckets:    make(map[string]*bucket),
		swept:      time.Now(),
	}
}

// Allow consumes one token for key, reporting whether the request may
// proceed.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.capacity), lastRefill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * l.refillRate
	if b.tokens > float64(l.capacity) {
		b.tokens = float64(l.capacity)
	}
	b.lastRefill = now
	b.lastUsed = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Reset restores the key's bucket to full capacity.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Len reports how many keys currently hold a bucket.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep drops buckets idle past the TTL. Runs at most once per TTL window,
// amortized over Allow calls; callers hold the lock.
func (l *Limiter) sweep(now time.Time) {
	if l.ttl <= 0 || now.Sub(l.swept) < l.ttl {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastUsed) > l.ttl {
			delete(l.buckets, key)
		}
	}
	l.swept = now
}
