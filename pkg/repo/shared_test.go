package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/singleflight"
)

func TestSharedCall_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var group singleflight.Group
	started := make(chan struct{})
	release := make(chan struct{})
	work := func(ctx context.Context) (any, error) {
		close(started)
		select {
		case <-release:
			return "ok", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := SharedCall(ctxA, &group, "acme", time.Minute, work)
		errA <- err
	}()
	<-started

	resB := make(chan any, 1)
	errB := make(chan error, 1)
	go func() {
		v, err := SharedCall(context.Background(), &group, "acme", time.Minute, work)
		resB <- v
		errB <- err
	}()

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	require.NoError(t, <-errB)
	require.Equal(t, "ok", <-resB)
}

func TestSharedCall_TimeoutBoundsWork(t *testing.T) {
	var group singleflight.Group
	_, err := SharedCall(context.Background(), &group, "acme", 10*time.Millisecond, func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
