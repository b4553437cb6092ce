package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollUntilReturnsValue(t *testing.T) {
	calls := 0
	got, err := PollUntil(context.Background(), time.Millisecond, time.Second,
		func(ctx context.Context) (string, bool, error) {
			calls++
			if calls < 4 {
				return "", false, nil
			}
			return "https://cdn/x.mp4", true, nil
		})

	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.mp4", got)
	assert.Equal(t, 4, calls)
}

func TestPollUntilTimeout(t *testing.T) {
	calls := 0
	start := time.Now()
	_, err := PollUntil(context.Background(), 10*time.Millisecond, 55*time.Millisecond,
		func(ctx context.Context) (int, bool, error) {
			calls++
			return 0, false, nil
		})

	require.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
	assert.GreaterOrEqual(t, calls, 2)
	assert.LessOrEqual(t, calls, 8)
}

func TestPollUntilProbeErrorIsTerminal(t *testing.T) {
	hard := errors.New("incorrect password")
	calls := 0
	_, err := PollUntil(context.Background(), time.Millisecond, time.Second,
		func(ctx context.Context) (int, bool, error) {
			calls++
			return 0, false, hard
		})

	assert.ErrorIs(t, err, hard)
	assert.Equal(t, 1, calls)
}

func TestPollUntilRunsProbeAtLeastOnce(t *testing.T) {
	called := false
	err := PollCondition(context.Background(), time.Millisecond, 0, func(ctx context.Context) (bool, error) {
		called = true
		return true, nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestPollUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := PollCondition(ctx, time.Second, time.Minute, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
