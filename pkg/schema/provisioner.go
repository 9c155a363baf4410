// Package schema brings master and tenant databases to the current schema
// version with goose. Concurrent runs against one database are serialized by
// a Postgres advisory lock, so racing callers apply each step exactly once.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
	"github.com/sirupsen/logrus"

	"github.com/gemelli/tenantcore/migrations"
	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/configuration"
	"github.com/gemelli/tenantcore/pkg/repo"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

const (
	ScopeTenant = "tenant"
	ScopeMaster = "master"
)

type Options struct {
	SSLMode        string
	ConnectTimeout time.Duration
	Connect        repo.RetryPolicy
	LockID         int64
	Timeout        time.Duration
}

func OptionsFromConfig(conf *configuration.Configuration) Options {
	return Options{
		SSLMode:        conf.TenantPool.SSLMode,
		ConnectTimeout: conf.TenantPool.ConnectTimeout,
		Connect: repo.RetryPolicy{
			Retries:        conf.TenantPool.AcquireRetries,
			InitialBackoff: conf.TenantPool.AcquireInitialBackoff,
			MaxBackoff:     conf.TenantPool.AcquireMaxBackoff,
		},
		LockID:  conf.Migrations.LockID,
		Timeout: conf.Migrations.Timeout,
	}
}

// Report describes one provisioning run.
type Report struct {
	Target  string
	Applied []int64
	Current int64
}

func (r *Report) Noop() bool {
	return len(r.Applied) == 0
}

type StepStatus struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

type Provisioner struct {
	scope  string
	source fs.FS
	opts   Options
}

func New(scope string, source fs.FS, opts Options) *Provisioner {
	return &Provisioner{scope: scope, source: source, opts: opts}
}

func NewTenantProvisioner(opts Options) *Provisioner {
	return New(ScopeTenant, migrations.Tenant(), opts)
}

func NewMasterProvisioner(opts Options) *Provisioner {
	return New(ScopeMaster, migrations.Master(), opts)
}

// EnsureMigrated applies every pending tenant step to the descriptor's database.
// Calling it on an up-to-date database is a no-op.
func (p *Provisioner) EnsureMigrated(ctx context.Context, d *descriptor.Descriptor) (*Report, error) {
	report, failed, err := p.run(ctx, d.Organization, d.DSN(p.opts.SSLMode))
	if err != nil {
		return report, &serrors.ProvisionError{Organization: d.Organization, Version: failed, Cause: err}
	}
	return report, nil
}

// Migrate runs pending steps against an arbitrary DSN. It is used for the master catalog.
func (p *Provisioner) Migrate(ctx context.Context, target, dsn string) (*Report, error) {
	report, failed, err := p.run(ctx, target, dsn)
	if err != nil {
		return report, &serrors.ProvisionError{Organization: target, Version: failed, Cause: err}
	}
	return report, nil
}

func (p *Provisioner) Status(ctx context.Context, d *descriptor.Descriptor) ([]StepStatus, error) {
	return p.StatusDSN(ctx, d.Organization, d.DSN(p.opts.SSLMode))
}

func (p *Provisioner) StatusDSN(ctx context.Context, target, dsn string) ([]StepStatus, error) {
	db, err := p.connect(ctx, target, dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	provider, err := p.provider(db)
	if err != nil {
		return nil, err
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]StepStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, StepStatus{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

func (p *Provisioner) run(ctx context.Context, target, dsn string) (*Report, int64, error) {
	m := getMetrics()
	logger := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"component": "schema",
		"scope":     p.scope,
		"target":    target,
	})
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	report := &Report{Target: target}
	db, err := p.connect(ctx, target, dsn)
	if err != nil {
		m.provisionTotal.WithLabelValues(p.scope, "connect_error").Inc()
		return report, 0, err
	}
	defer db.Close()

	provider, err := p.provider(db)
	if err != nil {
		m.provisionTotal.WithLabelValues(p.scope, "error").Inc()
		return report, 0, err
	}

	results, err := provider.Up(ctx)
	var failed int64
	if err != nil {
		var partial *goose.PartialError
		if errors.As(err, &partial) {
			results = partial.Applied
			if partial.Failed != nil && partial.Failed.Source != nil {
				failed = partial.Failed.Source.Version
			}
		}
	}
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		report.Applied = append(report.Applied, r.Source.Version)
		m.stepDuration.WithLabelValues(p.scope).Observe(r.Duration.Seconds())
		m.stepsApplied.WithLabelValues(p.scope).Inc()
		logger.WithField("version", r.Source.Version).Infof("applied %s in %s", r.Source.Path, r.Duration)
	}
	if err != nil {
		m.provisionTotal.WithLabelValues(p.scope, "error").Inc()
		logger.WithError(err).WithField("version", failed).Error("provisioning failed")
		return report, failed, err
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		m.provisionTotal.WithLabelValues(p.scope, "error").Inc()
		return report, 0, err
	}
	report.Current = current

	result := "applied"
	if report.Noop() {
		result = "noop"
	}
	m.provisionTotal.WithLabelValues(p.scope, result).Inc()
	logger.WithField("version", current).Debugf("schema %s", result)
	return report, 0, nil
}

func (p *Provisioner) provider(db *sql.DB) (*goose.Provider, error) {
	lockOpts := []lock.SessionLockerOption{}
	if p.opts.LockID != 0 {
		lockOpts = append(lockOpts, lock.WithLockID(p.opts.LockID))
	}
	locker, err := lock.NewPostgresSessionLocker(lockOpts...)
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectPostgres, db, p.source, goose.WithSessionLocker(locker))
}

// connect opens a direct connection that bypasses the routed tenant session.
func (p *Provisioner) connect(ctx context.Context, target, dsn string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if p.opts.ConnectTimeout > 0 {
		cfg.ConnectTimeout = p.opts.ConnectTimeout
	}
	db := stdlib.OpenDB(*cfg)

	logger := composables.UseLogger(ctx).WithField("target", target)
	_, err = repo.RetryTransient(ctx, p.opts.Connect, func() error {
		return db.PingContext(ctx)
	}, func(err error, next time.Duration) {
		logger.WithError(err).Warnf("database not reachable, retrying in %s", next)
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
