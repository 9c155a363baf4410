package tenantdb

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/repo"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeConn struct {
	repo.Tx
	pool     *fakePool
	released atomic.Bool
	lastTx   *fakeTx
}

func (c *fakeConn) Begin(context.Context) (pgx.Tx, error) {
	c.lastTx = &fakeTx{}
	return c.lastTx, nil
}

func (c *fakeConn) Release() {
	if c.released.CompareAndSwap(false, true) {
		c.pool.released.Add(1)
	}
}

type fakePool struct {
	desc     *descriptor.Descriptor
	acquired atomic.Int32
	released atomic.Int32
	closed   atomic.Bool

	mu          sync.Mutex
	acquireErrs []error
}

func (p *fakePool) Acquire(context.Context) (Conn, error) {
	p.mu.Lock()
	if len(p.acquireErrs) > 0 {
		err := p.acquireErrs[0]
		p.acquireErrs = p.acquireErrs[1:]
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()
	p.acquired.Add(1)
	return &fakeConn{pool: p}, nil
}

func (p *fakePool) Close() {
	p.closed.Store(true)
}

// fakeFactory records every pool it creates, keyed by organization.
type fakeFactory struct {
	mu      sync.Mutex
	created map[string][]*fakePool
	errs    map[string][]error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{created: map[string][]*fakePool{}, errs: map[string][]error{}}
}

func (f *fakeFactory) failAcquire(org string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[org] = errs
}

func (f *fakeFactory) New(_ context.Context, d *descriptor.Descriptor, _ Options) (Pool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakePool{desc: d.Clone(), acquireErrs: f.errs[d.Organization]}
	f.created[d.Organization] = append(f.created[d.Organization], p)
	return p, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ps := range f.created {
		n += len(ps)
	}
	return n
}

func (f *fakeFactory) pools(org string) []*fakePool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakePool(nil), f.created[org]...)
}
