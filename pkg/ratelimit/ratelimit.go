package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces operations at least one interval apart, optionally adding
// random jitter. The bucket holds a single token, so idle time is never
// banked and a slow browser step does not cause a burst of downloads
// afterwards. Safe for concurrent use.
type Limiter struct {
	lim      *rate.Limiter
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
}

// NewLimiter creates a limiter for rps operations per second. Jitter is
// clamped to [0, 1]; a jitter of 0.5 stretches each gap by up to half an
// interval. If rps is <= 0, the limiter does not block.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	l := &Limiter{jitter: jitter}
	if rps > 0 {
		l.lim = rate.NewLimiter(rate.Limit(rps), 1)
		l.interval = time.Duration(float64(time.Second) / rps)
	}
	return l
}

// Wait blocks until the next operation is allowed or ctx is done. The first
// call never waits on the rate, only on jitter.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.lim == nil {
		return nil
	}
	if err := l.lim.Wait(ctx); err != nil {
		return err
	}
	if l.jitter == 0 {
		return nil
	}

	timer := time.NewTimer(time.Duration(float64(l.interval) * l.jitter * rand.Float64()))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Interval reports the base spacing between operations.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}
