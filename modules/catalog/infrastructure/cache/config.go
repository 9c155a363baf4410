package cache

import (
	"context"

	"github.com/gemelli/tenantcore/pkg/configuration"
)

// FromConfig builds the cache selected by CATALOG_CACHE_BACKEND.
func FromConfig(ctx context.Context, opts configuration.CacheOptions) (Cache, error) {
	switch opts.Backend {
	case "redis":
		return DialRedis(ctx, opts.RedisURL, opts.TTL, opts.Prefix)
	case "none":
		return Noop{}, nil
	default:
		return NewMemory(opts.TTL), nil
	}
}
