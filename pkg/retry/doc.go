// Package retry provides backoff, bounded retries and deadline polling.
//
// Do retries an operation according to a BackoffStrategy and a RetryIf
// predicate. PollUntil evaluates a probe at a fixed interval until it
// reports done or a wall-clock deadline passes, returning ErrTimeout:
//
//	url, err := retry.PollUntil(ctx, 500*time.Millisecond, 10*time.Second,
//		func(ctx context.Context) (string, bool, error) {
//			u, ok := tryOnce(ctx)
//			return u, ok, nil
//		})
//	if errors.Is(err, retry.ErrTimeout) {
//		// nothing within the window
//	}
//
// Every wait goes through Wait, which returns early when ctx is cancelled.
package retry
