package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter controls outbound call throughput per directory operation.
type RateLimiter interface {
	Allow(ctx context.Context, operation string) (bool, error)
	Wait(ctx context.Context, operation string) error
}

var _ RateLimiter = (*LocalRateLimiter)(nil)

// LocalRateLimiter is an in-process token bucket limiter keyed by operation.
type LocalRateLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	limitPerSec int
}

func NewLocalRateLimiter(limitPerSec int) *LocalRateLimiter {
	if limitPerSec <= 0 {
		limitPerSec = 1
	}
	return &LocalRateLimiter{
		limiters:    make(map[string]*rate.Limiter),
		limitPerSec: limitPerSec,
	}
}

func (l *LocalRateLimiter) Allow(ctx context.Context, operation string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return l.limiterFor(operation).Allow(), nil
}

func (l *LocalRateLimiter) Wait(ctx context.Context, operation string) error {
	return l.limiterFor(operation).Wait(ctx)
}

func (l *LocalRateLimiter) limiterFor(operation string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[operation]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.limitPerSec), l.limitPerSec)
		l.limiters[operation] = limiter
	}
	return limiter
}
