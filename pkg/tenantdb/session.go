package tenantdb

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/repo"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

var ErrSessionReleased = errors.New("tenant session already released")

// Session is the per-request handle to the resolved organization's database.
// It binds to the tenant descriptor on first use and holds at most one
// connection until Release.
type Session struct {
	registry *Registry

	mu       sync.Mutex
	desc     *descriptor.Descriptor
	conn     Conn
	released bool
}

func NewSession(registry *Registry) *Session {
	return &Session{registry: registry}
}

// Descriptor returns the descriptor this session is bound to, binding it from
// the request's tenant context if needed.
func (s *Session) Descriptor(ctx context.Context) (*descriptor.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bind(ctx)
}

func (s *Session) bind(ctx context.Context) (*descriptor.Descriptor, error) {
	if s.released {
		return nil, ErrSessionReleased
	}
	if s.desc != nil {
		return s.desc, nil
	}
	d, err := composables.UseTenant(ctx)
	if err != nil {
		return nil, err
	}
	s.desc = d
	return d, nil
}

// Conn returns the session's connection, acquiring it on first call.
func (s *Session) Conn(ctx context.Context) (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.bind(ctx)
	if err != nil {
		return nil, err
	}
	if s.conn != nil {
		return s.conn, nil
	}

	m := getMetrics()
	start := time.Now()
	logger := composables.UseLogger(ctx).WithField("organization", d.Organization)
	var conn Conn
	attempts, err := repo.RetryTransient(ctx, s.registry.opts.Acquire, func() error {
		pool, err := s.registry.Pool(ctx, d)
		if err != nil {
			return err
		}
		c, err := pool.Acquire(ctx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, func(err error, next time.Duration) {
		logger.WithError(err).Warnf("tenant database unreachable, retrying in %s", next)
	})
	m.acquireLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		m.acquireTotal.WithLabelValues("error").Inc()
		if repo.IsTransient(err) || errors.Is(err, ErrStaleDescriptor) {
			return nil, &serrors.UnavailableError{Organization: d.Organization, Attempts: attempts, Cause: err}
		}
		return nil, err
	}
	m.acquireTotal.WithLabelValues("ok").Inc()
	s.conn = conn
	return conn, nil
}

func (s *Session) Begin(ctx context.Context) (pgx.Tx, error) {
	conn, err := s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Begin(ctx)
}

// InTx runs fn inside a new transaction on the tenant database. The
// transaction is also reachable through UseTx(ctx) inside fn.
func (s *Session) InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(WithTx(ctx, tx), tx); err != nil {
		if rErr := tx.Rollback(ctx); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// Release returns the connection to its pool. It is safe to call more than once.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
}
