// Package ratelimit paces visits to target accounts.
//
// A Pacer inserts a random pause between accounts so visits do not follow a
// fixed cadence, and asks a Limiter before each visit so a long target list
// cannot exceed the configured visits per hour.
//
// Two limiters are available:
//
//   - Smooth: token bucket from golang.org/x/time/rate, refilling evenly
//   - SlidingWindow: hard cap over any rolling window
//
// Usage:
//
//	pacer := ratelimit.NewPacer(3*time.Second, 6*time.Second, ratelimit.NewSmooth(120))
//	for _, account := range accounts {
//	    if err := pacer.Acquire(ctx); err != nil {
//	        return err
//	    }
//	    visit(account)
//	    pacer.Between(ctx)
//	}
package ratelimit
