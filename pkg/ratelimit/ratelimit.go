// Package ratelimit paces outbound API requests so the client stays inside
// the exchanges' published request budgets instead of tripping HTTP 429
// responses and temporary bans.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter gates a request. Wait blocks until a slot is available or the
// context ends; Allow takes a slot without blocking.
type Limiter interface {
	Wait(ctx context.Context) error
	Allow() bool
}

// TokenBucket refills at a fixed per-second rate up to its capacity. Bursts
// up to the capacity go through immediately, sustained traffic settles at the
// refill rate.
type TokenBucket struct {
	capacity  int
	refillPer int

	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket holding capacity tokens that refills
// refillPerSecond tokens each second.
func NewTokenBucket(capacity, refillPerSecond int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		refillPer:  refillPerSecond,
		tokens:     capacity,
		lastRefill: time.Now(),
	}
}

// ForBinance sizes a bucket for the spot API's 1200 request weight per
// minute, leaving headroom for the heavier signed endpoints.
func ForBinance() *TokenBucket { return NewTokenBucket(1200, 20) }

// ForKucoin sizes a bucket for the v1 API's 100 requests per 10 seconds.
func ForKucoin() *TokenBucket { return NewTokenBucket(100, 10) }

func (tb *TokenBucket) refill() {
	now := time.Now()
	added := int(now.Sub(tb.lastRefill).Seconds() * float64(tb.refillPer))
	if added > 0 {
		tb.tokens += added
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}
}

// Allow takes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}
		interval := time.Second
		if tb.refillPer > 0 {
			interval = time.Second / time.Duration(tb.refillPer)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Remaining reports the tokens currently available.
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}
