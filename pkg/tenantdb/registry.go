// Package tenantdb routes data access to the database of the organization a
// request resolved to. Pools are kept per organization and replaced when the
// organization's connection descriptor changes.
package tenantdb

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/composables"
	"github.com/gemelli/tenantcore/pkg/configuration"
	"github.com/gemelli/tenantcore/pkg/repo"
)

// openTimeout bounds pool creation, including first-use provisioning, shared
// by concurrent requests for one organization.
const openTimeout = 5 * time.Minute

var (
	ErrRegistryClosed  = errors.New("tenant pool registry is closed")
	ErrStaleDescriptor = errors.New("descriptor is older than the one currently routed")
)

type Options struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	SSLMode         string
	Acquire         repo.RetryPolicy
}

func OptionsFromConfig(conf *configuration.Configuration) Options {
	p := conf.TenantPool
	return Options{
		MaxConns:        p.MaxConns,
		MinConns:        p.MinConns,
		MaxConnLifetime: p.MaxConnLifetime,
		MaxConnIdleTime: p.MaxConnIdleTime,
		ConnectTimeout:  p.ConnectTimeout,
		SSLMode:         p.SSLMode,
		Acquire: repo.RetryPolicy{
			Retries:        p.AcquireRetries,
			InitialBackoff: p.AcquireInitialBackoff,
			MaxBackoff:     p.AcquireMaxBackoff,
		},
	}
}

// Provisioner brings a tenant database up to date before its pool is first used.
type Provisioner interface {
	Ensure(ctx context.Context, d *descriptor.Descriptor) error
}

type RegistryOption func(r *Registry)

func WithPoolFactory(f PoolFactory) RegistryOption {
	return func(r *Registry) {
		r.factory = f
	}
}

func WithProvisioner(p Provisioner) RegistryOption {
	return func(r *Registry) {
		r.provisioner = p
	}
}

type entry struct {
	pool        Pool
	fingerprint string
	updatedAt   time.Time
}

type Registry struct {
	opts        Options
	factory     PoolFactory
	provisioner Provisioner
	group       singleflight.Group

	mu     sync.RWMutex
	pools  map[string]*entry
	closed bool
}

func NewRegistry(opts Options, options ...RegistryOption) *Registry {
	r := &Registry{
		opts:    opts,
		factory: NewPgxPool,
		pools:   make(map[string]*entry),
	}
	for _, o := range options {
		o(r)
	}
	return r
}

func (r *Registry) Options() Options {
	return r.opts
}

// Pool returns the pool for d, creating it on first use. Concurrent first
// uses of one descriptor share a single creation.
func (r *Registry) Pool(ctx context.Context, d *descriptor.Descriptor) (Pool, error) {
	fp := d.Fingerprint()
	r.mu.RLock()
	closed := r.closed
	current := r.pools[d.Organization]
	r.mu.RUnlock()
	if closed {
		return nil, ErrRegistryClosed
	}
	if current != nil {
		if current.fingerprint == fp {
			return current.pool, nil
		}
		if d.UpdatedAt.Before(current.updatedAt) {
			return nil, ErrStaleDescriptor
		}
	}

	v, err := repo.SharedCall(ctx, &r.group, d.Organization+"\x00"+fp, openTimeout, func(ctx context.Context) (any, error) {
		return r.open(ctx, d, fp)
	})
	if err != nil {
		return nil, err
	}
	return v.(Pool), nil
}

func (r *Registry) open(ctx context.Context, d *descriptor.Descriptor, fp string) (Pool, error) {
	m := getMetrics()
	if r.provisioner != nil {
		if err := r.provisioner.Ensure(ctx, d); err != nil {
			return nil, err
		}
	}
	pool, err := r.factory(ctx, d, r.opts)
	if err != nil {
		m.poolEvents.WithLabelValues("open_error").Inc()
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		pool.Close()
		return nil, ErrRegistryClosed
	}
	var replaced Pool
	if cur := r.pools[d.Organization]; cur != nil {
		if cur.fingerprint == fp {
			r.mu.Unlock()
			pool.Close()
			return cur.pool, nil
		}
		if d.UpdatedAt.Before(cur.updatedAt) {
			r.mu.Unlock()
			pool.Close()
			return nil, ErrStaleDescriptor
		}
		replaced = cur.pool
	}
	r.pools[d.Organization] = &entry{pool: pool, fingerprint: fp, updatedAt: d.UpdatedAt}
	r.mu.Unlock()

	m.poolEvents.WithLabelValues("open").Inc()
	logger := composables.UseLogger(ctx).WithField("organization", d.Organization)
	if replaced != nil {
		m.poolEvents.WithLabelValues("replace").Inc()
		logger.Info("descriptor changed, replacing tenant pool")
		go replaced.Close()
	} else {
		m.pools.Inc()
	}
	return pool, nil
}

// Evict drops the organization's pool. In-flight connections finish first.
func (r *Registry) Evict(organization string) {
	r.mu.Lock()
	e, ok := r.pools[organization]
	delete(r.pools, organization)
	r.mu.Unlock()
	if !ok {
		return
	}
	m := getMetrics()
	m.pools.Dec()
	m.poolEvents.WithLabelValues("evict").Inc()
	go e.pool.Close()
}

// OnDescriptorUpdated is subscribed to the event bus.
func (r *Registry) OnDescriptorUpdated(e *descriptor.UpdatedEvent) {
	if e.ConnectionChanged() {
		r.Evict(e.Result.Organization)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// Close closes every pool and blocks until they are closed.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	pools := r.pools
	r.pools = make(map[string]*entry)
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range pools {
		wg.Add(1)
		go func(p Pool) {
			defer wg.Done()
			p.Close()
		}(e.pool)
	}
	wg.Wait()
	getMetrics().pools.Sub(float64(len(pools)))
}
