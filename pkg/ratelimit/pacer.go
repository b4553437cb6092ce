package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer spaces account visits: a random pause between accounts plus a cap
// on visits per hour.
type Pacer struct {
	lo, hi  time.Duration
	limiter Limiter

	// randN returns a value in [0, n); replaced in tests
	randN func(n int64) int64
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer pausing between lo and hi. limiter may be nil.
func NewPacer(lo, hi time.Duration, limiter Limiter) *Pacer {
	if hi < lo {
		lo, hi = hi, lo
	}
	return &Pacer{
		lo:      lo,
		hi:      hi,
		limiter: limiter,
		randN:   rand.Int64N,
		sleep:   sleepCtx,
	}
}

// Delay picks the next pause, uniform in [lo, hi]
func (p *Pacer) Delay() time.Duration {
	span := int64(p.hi - p.lo)
	if span <= 0 {
		return p.lo
	}
	return p.lo + time.Duration(p.randN(span+1))
}

// Acquire blocks until the hourly cap allows another visit
func (p *Pacer) Acquire(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// Between sleeps the randomized pause between two accounts and returns the
// duration slept
func (p *Pacer) Between(ctx context.Context) (time.Duration, error) {
	d := p.Delay()
	return d, p.sleep(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
