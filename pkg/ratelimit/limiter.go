package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter caps how many account visits start per period
type Limiter interface {
	// Allow reports whether a visit may start now, consuming a slot if so
	Allow() bool
	// Wait blocks until a visit may start or ctx is done
	Wait(ctx context.Context) error
	// Reset forgets past visits
	Reset()
}

// Smooth spreads visits evenly over the hour using a token bucket from
// golang.org/x/time/rate. Up to perHour visits may start back to back.
type Smooth struct {
	perHour int
	mu      sync.Mutex
	lim     *rate.Limiter
}

// NewSmooth allows perHour visits per hour. perHour <= 0 disables the cap.
func NewSmooth(perHour int) *Smooth {
	s := &Smooth{perHour: perHour}
	s.Reset()
	return s
}

func (s *Smooth) limiter() *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lim
}

func (s *Smooth) Allow() bool {
	return s.limiter().Allow()
}

func (s *Smooth) Wait(ctx context.Context) error {
	return s.limiter().Wait(ctx)
}

func (s *Smooth) Reset() {
	var lim *rate.Limiter
	if s.perHour <= 0 {
		lim = rate.NewLimiter(rate.Inf, 1)
	} else {
		lim = rate.NewLimiter(rate.Every(time.Hour/time.Duration(s.perHour)), s.perHour)
	}
	s.mu.Lock()
	s.lim = lim
	s.mu.Unlock()
}

// SlidingWindow allows at most maxRequests visits in any rolling window
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
	now         func() time.Time
}

// NewSlidingWindow creates a sliding window limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.maxRequests <= 0 {
		return true
	}

	now := sw.now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		sw.mu.Lock()
		wait := 100 * time.Millisecond
		if len(sw.requests) > 0 {
			if d := sw.windowSize - sw.now().Sub(sw.requests[0]); d > 0 {
				wait = d
			}
		}
		sw.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.requests = sw.requests[:0]
}

// cleanOldRequests drops visits that left the window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && sw.requests[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// New returns the limiter for mode: "window" for a rolling hourly cap,
// anything else for Smooth.
func New(mode string, perHour int) Limiter {
	if mode == "window" {
		return NewSlidingWindow(perHour, time.Hour)
	}
	return NewSmooth(perHour)
}
