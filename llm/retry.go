package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultMaxAttempts bounds structured-output calls.
const DefaultMaxAttempts = 3

// RetryPolicy configures the bounded retry applied to structured calls.
type RetryPolicy struct {
	MaxAttempts uint
	// NewBackOff returns a fresh backoff per call. Nil means exponential
	// backoff starting at 500ms.
	NewBackOff func() backoff.BackOff
	// OnRetry is invoked before each retry with the error that caused it.
	OnRetry func(err error, wait time.Duration)
}

func (p RetryPolicy) backOff() backoff.BackOff {
	if p.NewBackOff != nil {
		return p.NewBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	return b
}

// Retry runs op until it succeeds, returns a non-retryable error, or the
// attempt limit is reached. Only ProviderError and SchemaMismatchError are
// retried; anything else is returned immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := policy.MaxAttempts
	if attempts == 0 {
		attempts = DefaultMaxAttempts
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(attempts),
		backoff.WithMaxElapsedTime(0),
	}
	if policy.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(policy.OnRetry))
	}

	result, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !(IsProviderError(err) || IsSchemaMismatch(err)) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return result, perm.Unwrap()
		}
		return result, err
	}
	return result, nil
}
