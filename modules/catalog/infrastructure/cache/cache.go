// Package cache holds descriptor caches that sit in front of the master catalog.
package cache

import (
	"context"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
)

type Cache interface {
	// Get reports a miss as (nil, false, nil).
	Get(ctx context.Context, organization string) (*descriptor.Descriptor, bool, error)
	Set(ctx context.Context, d *descriptor.Descriptor) error
	Invalidate(ctx context.Context, organization string) error
}

// Noop never holds anything. It backs CATALOG_CACHE_BACKEND=none.
type Noop struct{}

func (Noop) Get(context.Context, string) (*descriptor.Descriptor, bool, error) {
	return nil, false, nil
}

func (Noop) Set(context.Context, *descriptor.Descriptor) error { return nil }

func (Noop) Invalidate(context.Context, string) error { return nil }
