package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sevigo/review-broker/internal/core"
	"github.com/sevigo/review-broker/internal/telemetry"
)

// RetryPolicy bounds the retries of collaborator calls.
type RetryPolicy struct {
	// MaxAttempts counts the first call.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p RetryPolicy) exponential() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(p.exponential(), uint64(attempts-1)), ctx)
}

// retryCall runs fn until it succeeds, fails with an error that
// core.IsRetryable rejects, or the policy is exhausted. The last error is
// returned unwrapped.
func retryCall[T any](ctx context.Context, p RetryPolicy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := backoff.RetryNotify(func() error {
		v, err := fn(ctx)
		if err != nil {
			if !core.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = v
		return nil
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		telemetry.RetriesTotal.WithLabelValues(op).Inc()
		logger.Warn("retrying after transient failure", "op", op, "wait", wait, "error", err)
	})
	return out, err
}
