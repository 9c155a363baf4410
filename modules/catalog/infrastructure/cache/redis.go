package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gemelli/tenantcore/modules/catalog/domain/descriptor"
)

// Redis shares descriptors between processes. Values are JSON and expire after ttl.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRedis(client redis.UniversalClient, ttl time.Duration, prefix string) *Redis {
	return &Redis{client: client, ttl: ttl, prefix: prefix}
}

// DialRedis parses url, pings the server and returns a cache backed by it.
func DialRedis(ctx context.Context, url string, ttl time.Duration, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedis(client, ttl, prefix), nil
}

func (c *Redis) key(organization string) string {
	return c.prefix + organization
}

func (c *Redis) Get(ctx context.Context, organization string) (*descriptor.Descriptor, bool, error) {
	data, err := c.client.Get(ctx, c.key(organization)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var d descriptor.Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal descriptor: %w", err)
	}
	return &d, true, nil
}

func (c *Redis) Set(ctx context.Context, d *descriptor.Descriptor) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}
	return c.client.Set(ctx, c.key(d.Organization), data, c.ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context, organization string) error {
	return c.client.Del(ctx, c.key(organization)).Err()
}

func (c *Redis) Close() error {
	return c.client.Close()
}
