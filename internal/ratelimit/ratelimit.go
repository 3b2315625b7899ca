package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces out page navigations so a batch does not hammer one vendor.
type Limiter interface {
	Wait(ctx context.Context) error
}

// SimpleRateLimiter releases one caller per token. After every release the
// refill interval is redrawn from [minDelay, maxDelay], so consecutive
// navigations are separated by a jittered gap.
type SimpleRateLimiter struct {
	minDelay time.Duration
	maxDelay time.Duration
	limiter  *rate.Limiter
	mu       sync.Mutex
	rnd      *rand.Rand
}

// New returns a Noop limiter when both bounds are zero.
func New(minDelay, maxDelay time.Duration) Limiter {
	if minDelay <= 0 && maxDelay <= 0 {
		return Noop{}
	}
	return NewSimpleRateLimiter(minDelay, maxDelay)
}

func NewSimpleRateLimiter(minDelay, maxDelay time.Duration) *SimpleRateLimiter {
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &SimpleRateLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		limiter:  rate.NewLimiter(rate.Every(max(minDelay, time.Nanosecond)), 1),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Wait blocks until the next token is available. The first call returns
// immediately.
func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	// the bucket is empty right after a release, so the new interval
	// measures the gap from now to the next caller
	r.limiter.SetLimit(rate.Every(r.delay()))
	return nil
}

func (r *SimpleRateLimiter) delay() time.Duration {
	if r.minDelay == r.maxDelay {
		return r.minDelay
	}
	delta := r.maxDelay - r.minDelay
	return r.minDelay + time.Duration(r.rnd.Int63n(int64(delta)))
}

type Noop struct{}

func (Noop) Wait(ctx context.Context) error {
	return ctx.Err()
}
