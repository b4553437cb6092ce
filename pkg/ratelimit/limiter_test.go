package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmooth(t *testing.T) {
	s := NewSmooth(3)
	for i := 0; i < 3; i++ {
		assert.True(t, s.Allow(), "visit %d", i+1)
	}
	assert.False(t, s.Allow())

	s.Reset()
	assert.True(t, s.Allow())
}

func TestSmoothUnlimited(t *testing.T) {
	s := NewSmooth(0)
	for i := 0; i < 1000; i++ {
		require.True(t, s.Allow())
	}
	assert.NoError(t, s.Wait(context.Background()))
}

func TestSmoothWaitHonoursContext(t *testing.T) {
	s := NewSmooth(1)
	require.True(t, s.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, s.Wait(ctx))
}

func TestSlidingWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	sw := NewSlidingWindow(3, time.Second)
	sw.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, sw.Allow(), "visit %d", i+1)
	}
	assert.False(t, sw.Allow())

	now = now.Add(time.Second + time.Millisecond)
	assert.True(t, sw.Allow())

	sw.Reset()
	assert.Empty(t, sw.requests)
}

func TestSlidingWindowWaitCancelled(t *testing.T) {
	sw := NewSlidingWindow(1, time.Hour)
	require.True(t, sw.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sw.Wait(ctx), context.Canceled)
}

func TestNewSelectsMode(t *testing.T) {
	assert.IsType(t, &SlidingWindow{}, New("window", 10))
	assert.IsType(t, &Smooth{}, New("smooth", 10))
	assert.IsType(t, &Smooth{}, New("", 10))
}
