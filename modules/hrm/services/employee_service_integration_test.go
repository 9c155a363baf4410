package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/gemelli/tenantcore/modules/audit/domain/record"
	auditpersistence "github.com/gemelli/tenantcore/modules/audit/infrastructure/persistence"
	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/modules/hrm/domain/employee"
	"github.com/gemelli/tenantcore/modules/hrm/infrastructure/persistence"
	"github.com/gemelli/tenantcore/modules/hrm/services"
	"github.com/gemelli/tenantcore/pkg/identity"
	"github.com/gemelli/tenantcore/pkg/itf"
	"github.com/gemelli/tenantcore/pkg/repo"
	"github.com/gemelli/tenantcore/pkg/schema"
	"github.com/gemelli/tenantcore/pkg/tenantdb"
)

func newRegistry(t *testing.T) *tenantdb.Registry {
	t.Helper()
	memo := schema.NewMemo(schema.NewTenantProvisioner(schema.Options{
		SSLMode:        "disable",
		ConnectTimeout: 2 * time.Second,
		Connect:        repo.RetryPolicy{Retries: 1, InitialBackoff: 10 * time.Millisecond},
		LockID:         4243,
		Timeout:        time.Minute,
	}))
	registry := tenantdb.NewRegistry(tenantdb.Options{
		MaxConns:       4,
		ConnectTimeout: 2 * time.Second,
		SSLMode:        "disable",
		Acquire:        repo.RetryPolicy{Retries: 1, InitialBackoff: 10 * time.Millisecond},
	}, tenantdb.WithProvisioner(memo))
	t.Cleanup(registry.Close)
	return registry
}

// request mimics one HTTP request: a fresh tenant context and session that is
// released when fn returns.
func request(t *testing.T, registry *tenantdb.Registry, d *descriptor.Descriptor, fn func(ctx context.Context)) {
	t.Helper()
	ctx := itf.RequestContext(t, d, &identity.User{ID: "u-1", Name: "Dana"})
	session := tenantdb.NewSession(registry)
	defer session.Release()
	fn(tenantdb.WithSession(ctx, session))
}

func TestEmployeeService_AuditTrailStaysInTenantDatabase(t *testing.T) {
	srv := itf.RequireServer(t)
	acme := srv.CreateDatabase(t, "acme")
	globex := srv.CreateDatabase(t, "globex")
	registry := newRegistry(t)

	audits := auditpersistence.NewAuditLogRepository()
	svc := services.NewEmployeeService(persistence.NewEmployeeRepository(), audits, nil)

	var created *employee.Employee
	request(t, registry, acme, func(ctx context.Context) {
		var err error
		created, err = svc.Create(ctx, &employee.CreateDTO{FullName: "Ada Lovelace", Salary: decimal.NewFromInt(1000)})
		require.NoError(t, err)
	})
	request(t, registry, acme, func(ctx context.Context) {
		_, err := svc.UpdateSalary(ctx, created.ID, &employee.UpdateSalaryDTO{Salary: decimal.NewFromInt(1200)})
		require.NoError(t, err)
	})

	request(t, registry, acme, func(ctx context.Context) {
		e, err := svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, e.Salary.Equal(decimal.NewFromInt(1200)))

		logs, err := audits.List(ctx, &record.FindParams{Entity: "employee", Operation: record.Modified})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		require.Contains(t, logs[0].Prior, `"salary":"1000"`)
		require.Contains(t, logs[0].Next, `"salary":"1200"`)
		require.Equal(t, "u-1", *logs[0].ActorID)

		total, err := audits.Count(ctx, &record.FindParams{EntityKey: created.ID.String()})
		require.NoError(t, err)
		require.EqualValues(t, 2, total)
	})

	request(t, registry, globex, func(ctx context.Context) {
		_, err := svc.GetByID(ctx, created.ID)
		require.ErrorIs(t, err, persistence.ErrEmployeeNotFound)

		total, err := audits.Count(ctx, nil)
		require.NoError(t, err)
		require.Zero(t, total)
	})
	require.Equal(t, 2, registry.Len())
}
