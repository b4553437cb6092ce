package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerDelayBounds(t *testing.T) {
	p := NewPacer(3*time.Second, 6*time.Second, nil)
	for i := 0; i < 500; i++ {
		d := p.Delay()
		require.GreaterOrEqual(t, d, 3*time.Second)
		require.LessOrEqual(t, d, 6*time.Second)
	}
}

func TestPacerDelayUsesRandomSource(t *testing.T) {
	p := NewPacer(time.Second, 2*time.Second, nil)
	p.randN = func(n int64) int64 { return n - 1 }
	assert.Equal(t, 2*time.Second, p.Delay())

	p.randN = func(int64) int64 { return 0 }
	assert.Equal(t, time.Second, p.Delay())
}

func TestPacerSwappedBounds(t *testing.T) {
	p := NewPacer(5*time.Second, time.Second, nil)
	d := p.Delay()
	assert.GreaterOrEqual(t, d, time.Second)
	assert.LessOrEqual(t, d, 5*time.Second)
}

func TestPacerFixedDelay(t *testing.T) {
	p := NewPacer(time.Second, time.Second, nil)
	assert.Equal(t, time.Second, p.Delay())
}

func TestPacerBetweenSleeps(t *testing.T) {
	var slept time.Duration
	p := NewPacer(10*time.Millisecond, 20*time.Millisecond, nil)
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	d, err := p.Between(context.Background())
	require.NoError(t, err)
	assert.Equal(t, d, slept)
}

func TestPacerBetweenCancelled(t *testing.T) {
	p := NewPacer(time.Hour, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Between(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPacerAcquire(t *testing.T) {
	p := NewPacer(0, 0, NewSmooth(1))
	require.NoError(t, p.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, p.Acquire(ctx))

	assert.NoError(t, NewPacer(0, 0, nil).Acquire(context.Background()))
}
