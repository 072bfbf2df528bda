package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stacklok/osb-git-store/internal/git"
)

// RetryPolicy bounds WithRetry
type RetryPolicy struct {
	// MaxTries counts the first attempt; values below 1 mean a single attempt
	MaxTries uint

	// InitialInterval is the delay before the first retry
	InitialInterval time.Duration

	// MaxElapsedTime stops retrying once exceeded; zero means no limit
	MaxElapsedTime time.Duration
}

// DefaultRetryPolicy is used by the CLI
var DefaultRetryPolicy = RetryPolicy{
	MaxTries:        3,
	InitialInterval: time.Second,
	MaxElapsedTime:  2 * time.Minute,
}

// WithRetry repeats a whole operation with exponential backoff while it fails
// with an error git.IsRetryable accepts. Conflicts and decode errors end the
// retries immediately. Operations are idempotent, so repeating one after a
// failed push only repeats the push.
func WithRetry[T any](ctx context.Context, policy RetryPolicy, operation func(context.Context) (T, error)) (T, error) {
	tries := policy.MaxTries
	if tries < 1 {
		tries = 1
	}

	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.InfoContext(ctx, "Operation failed, retrying", "error", err.Error(), "backoff", next.String())
		}),
	}
	if policy.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(policy.MaxElapsedTime))
	}

	return backoff.Retry(ctx, func() (T, error) {
		result, err := operation(ctx)
		if err != nil && !git.IsRetryable(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}, opts...)
}
