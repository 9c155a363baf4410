package tenantdb

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/repo"
)

// Conn is one acquired connection. *pgxpool.Conn satisfies it.
type Conn interface {
	repo.Tx
	Begin(ctx context.Context) (pgx.Tx, error)
	Release()
}

type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Close()
}

type PoolFactory func(ctx context.Context, d *descriptor.Descriptor, opts Options) (Pool, error)

type pgxPool struct {
	*pgxpool.Pool
}

func (p pgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// NewPgxPool is the default PoolFactory. Connections are opened lazily.
func NewPgxPool(_ context.Context, d *descriptor.Descriptor, opts Options) (Pool, error) {
	config, err := pgxpool.ParseConfig(d.DSN(opts.SSLMode))
	if err != nil {
		return nil, err
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	config.MinConns = opts.MinConns
	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.ConnectTimeout > 0 {
		config.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}
	return pgxPool{pool}, nil
}
