// Package tenant holds the per-request Tenant Context: the single place
// downstream code learns which organization's database a request belongs to.
package tenant

import (
	"errors"
	"sync"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
	"github.com/gemelli/tenantcore/pkg/serrors"
)

var (
	ErrAlreadySet = errors.New("tenant context already set for this request")
	ErrSealed     = errors.New("tenant context was read before it was set")
	ErrNilContext = errors.New("nil descriptor")
)

// Context is write-once. It must be created fresh for every request and is
// sealed on first read, so a descriptor can never change under a running handler.
type Context struct {
	mu      sync.Mutex
	desc    *descriptor.Descriptor
	failure error
	set     bool
	sealed  bool
}

func NewContext() *Context {
	return &Context{}
}

func (c *Context) Set(d *descriptor.Descriptor) error {
	if d == nil {
		return ErrNilContext
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set || c.failure != nil {
		return ErrAlreadySet
	}
	if c.sealed {
		return ErrSealed
	}
	c.desc = d.Clone()
	c.set = true
	return nil
}

// Fail records why the tenant could not be resolved for a reason other than
// an unknown organization. MustGet returns err instead of TenantNotResolved.
func (c *Context) Fail(err error) error {
	if err == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set || c.failure != nil {
		return ErrAlreadySet
	}
	if c.sealed {
		return ErrSealed
	}
	c.failure = err
	return nil
}

// Err returns the error recorded by Fail, if any.
func (c *Context) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Get returns a copy of the resolved descriptor. The context is sealed afterwards.
func (c *Context) Get() (*descriptor.Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	if !c.set {
		return nil, false
	}
	return c.desc.Clone(), true
}

// MustGet is Get with an error instead of a boolean: the error recorded by
// Fail, or TenantNotResolved.
func (c *Context) MustGet() (*descriptor.Descriptor, error) {
	d, ok := c.Get()
	if !ok {
		if err := c.Err(); err != nil {
			return nil, err
		}
		return nil, serrors.TenantNotResolved("no descriptor bound to this request")
	}
	return d, nil
}

func (c *Context) Organization() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set {
		return ""
	}
	return c.desc.Organization
}
