package repo

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// SharedCall runs fn once per key for every concurrent caller. fn runs on a
// context detached from the callers' cancellation and bounded by timeout,
// so one caller giving up does not fail the others. Each caller stops
// waiting when its own ctx is done.
func SharedCall(ctx context.Context, group *singleflight.Group, key string, timeout time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	ch := group.DoChan(key, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		if timeout > 0 {
			var cancel context.CancelFunc
			shared, cancel = context.WithTimeout(shared, timeout)
			defer cancel()
		}
		return fn(shared)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
