// Package retry wraps cenkalti/backoff behind a fixed-interval policy.
//
// Every wait loop in the reconciliation engine (admin connectivity,
// capability polling, transport retries) uses constant-delay retries with a
// bounded attempt count.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes a bounded fixed-interval retry loop.
type Policy struct {
	MaxAttempts uint
	Interval    time.Duration
}

// Do runs op until it succeeds, the policy is exhausted, or ctx is
// cancelled. Errors wrapped with Permanent stop the loop immediately.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Interval)),
		backoff.WithMaxTries(p.MaxAttempts),
	)
}

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
