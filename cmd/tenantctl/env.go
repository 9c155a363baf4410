package main

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/modules/catalog/infrastructure/persistence"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/configuration"
	"github.com/gemelli/tenantcore/pkg/schema"
)

type descriptorSource interface {
	GetByOrganization(ctx context.Context, organization string) (*descriptor.Descriptor, error)
	List(ctx context.Context, params *descriptor.FindParams) ([]*descriptor.Descriptor, error)
}

type tenantMigrator interface {
	EnsureMigrated(ctx context.Context, d *descriptor.Descriptor) (*schema.Report, error)
	Status(ctx context.Context, d *descriptor.Descriptor) ([]schema.StepStatus, error)
}

type masterMigrator interface {
	Migrate(ctx context.Context, target, dsn string) (*schema.Report, error)
	StatusDSN(ctx context.Context, target, dsn string) ([]schema.StepStatus, error)
}

type environment struct {
	catalog   descriptorSource
	tenant    tenantMigrator
	master    masterMigrator
	masterDSN string
	close     func()
}

// openEnvironment is swapped in tests.
var openEnvironment = func(ctx context.Context, needCatalog bool) (context.Context, *environment, error) {
	conf := configuration.Use()
	ctx = composables.WithLogger(ctx, logrus.NewEntry(conf.Logger()).WithField("component", "tenantctl"))

	opts := schema.OptionsFromConfig(conf)
	env := &environment{
		tenant:    schema.NewTenantProvisioner(opts),
		master:    schema.NewMasterProvisioner(opts),
		masterDSN: conf.Database.Opts,
		close:     conf.Unload,
	}
	if !needCatalog {
		return ctx, env, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, conf.Database.Opts)
	if err != nil {
		conf.Unload()
		return ctx, nil, withCode(exitDB, errors.Wrap(err, "connect master catalog"))
	}
	env.catalog = persistence.NewDataConfigRepository()
	env.close = func() {
		pool.Close()
		conf.Unload()
	}
	return composables.WithPool(ctx, pool), env, nil
}
