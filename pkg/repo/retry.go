package repo

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

// RetryPolicy bounds how often and how patiently transient failures are retried.
type RetryPolicy struct {
	Retries        int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		bo.InitialInterval = p.InitialBackoff
	}
	if p.MaxBackoff > 0 {
		bo.MaxInterval = p.MaxBackoff
	}
	bo.MaxElapsedTime = 0
	if p.Retries <= 0 {
		// WithMaxRetries treats zero as unlimited.
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.Retries)), ctx)
}

// RetryTransient runs op until it succeeds, fails with a non-transient error,
// exhausts the policy or ctx is done. It returns the number of attempts made.
func RetryTransient(ctx context.Context, policy RetryPolicy, op func() error, notify func(error, time.Duration)) (int, error) {
	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		err := op()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy.backOff(ctx), notify)
	return attempts, err
}
