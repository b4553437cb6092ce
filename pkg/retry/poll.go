package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by PollUntil when the deadline passes before the
// probe reports done.
var ErrTimeout = errors.New("poll deadline exceeded")

// Probe is evaluated once per poll iteration. Returning done=true ends the
// poll with value. A non-nil error ends the poll immediately.
type Probe[T any] func(ctx context.Context) (value T, done bool, err error)

// PollUntil runs probe every interval until it reports done, returns an
// error, or timeout elapses. The deadline is wall-clock and is checked
// after every probe, so the probe always runs at least once.
func PollUntil[T any](ctx context.Context, interval, timeout time.Duration, probe Probe[T]) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for attempt := 1; ; attempt++ {
		value, done, err := probe(ctx)
		if err != nil {
			return zero, err
		}
		if done {
			return value, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, fmt.Errorf("%w after %d attempts (%s)", ErrTimeout, attempt, timeout)
		}

		wait := interval
		if remaining < wait {
			wait = remaining
		}
		if err := Wait(ctx, wait); err != nil {
			return zero, err
		}
	}
}

// PollCondition is PollUntil for probes that carry no value.
func PollCondition(ctx context.Context, interval, timeout time.Duration, cond func(ctx context.Context) (bool, error)) error {
	_, err := PollUntil(ctx, interval, timeout, func(ctx context.Context) (struct{}, bool, error) {
		ok, err := cond(ctx)
		return struct{}{}, ok, err
	})
	return err
}
