package persistence_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/modules/catalog/infrastructure/persistence"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/itf"
	"github.com/gemelli/tenantcore/pkg/repo"
	"github.com/gemelli/tenantcore/pkg/schema"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

func masterContext(t *testing.T) (context.Context, itf.Server) {
	t.Helper()
	srv := itf.RequireServer(t)
	master := srv.CreateDatabase(t, "master")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)
	_, err := schema.NewMasterProvisioner(schema.Options{
		SSLMode:        "disable",
		ConnectTimeout: 2 * time.Second,
		Connect:        repo.RetryPolicy{Retries: 1, InitialBackoff: 10 * time.Millisecond},
		LockID:         4244,
		Timeout:        time.Minute,
	}).Migrate(ctx, "master", master.DSN("disable"))
	require.NoError(t, err)

	return composables.WithPool(ctx, itf.NewPool(t, master)), srv
}

func TestDataConfigRepository_ConcurrentCreateHasOneWinner(t *testing.T) {
	ctx, srv := masterContext(t)
	r := persistence.NewDataConfigRepository()

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Create(ctx, srv.Descriptor("acme", "acme_db"))
		}(i)
	}
	wg.Wait()

	var created int
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, errors.Is(err, serrors.ErrDescriptorConflict), "unexpected error: %v", err)
	}
	require.Equal(t, 1, created)

	count, err := r.Count(ctx, &descriptor.FindParams{})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestDataConfigRepository_StaleUpdateIsRejected(t *testing.T) {
	ctx, srv := masterContext(t)
	r := persistence.NewDataConfigRepository()

	stored, err := r.Create(ctx, srv.Descriptor("acme", "acme_db"))
	require.NoError(t, err)
	readAt := stored.UpdatedAt

	first := *stored
	first.Database = "acme_v2"
	first.UpdatedAt = readAt.Add(time.Second)
	updated, err := r.Update(ctx, &first, readAt)
	require.NoError(t, err)
	require.Equal(t, "acme_v2", updated.Database)

	second := *stored
	second.Database = "acme_v3"
	second.UpdatedAt = readAt.Add(2 * time.Second)
	_, err = r.Update(ctx, &second, readAt)
	require.ErrorIs(t, err, persistence.ErrStaleWrite)
	require.ErrorIs(t, err, serrors.ErrDescriptorConflict)

	current, err := r.GetByOrganization(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "acme_v2", current.Database)
}
