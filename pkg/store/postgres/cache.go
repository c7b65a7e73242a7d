package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tapecert/tapecert/pkg/cert"
	"github.com/tapecert/tapecert/pkg/store"
)

// CertificateCache is a Redis read-through cache for certificate lookups.
// Misses and cache failures are soft; callers fall back to the database.
type CertificateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCertificateCache connects to Redis and verifies connectivity.
func NewCertificateCache(cfg store.Config) (*CertificateCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB >= 0 {
		opts.DB = cfg.RedisDB
	}
	if cfg.RedisMaxRetries > 0 {
		opts.MaxRetries = cfg.RedisMaxRetries
	}
	if cfg.RedisPoolSize > 0 {
		opts.PoolSize = cfg.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &CertificateCache{client: client, ttl: ttl}, nil
}

func certificateKey(id string) string {
	return fmt.Sprintf("certificate:%s", id)
}

// Get retrieves a certificate from cache. A miss returns (nil, nil).
func (c *CertificateCache) Get(ctx context.Context, id string) (*cert.Certificate, error) {
	data, err := c.client.Get(ctx, certificateKey(id)).Result()
	if err == redis.Nil {
		return nil, nil // Cache miss
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var record cert.Certificate
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		// If unmarshal fails, delete corrupt data
		c.client.Del(ctx, certificateKey(id))
		return nil, fmt.Errorf("failed to unmarshal certificate: %w", err)
	}

	return &record, nil
}

// Set stores a certificate in cache.
func (c *CertificateCache) Set(ctx context.Context, record *cert.Certificate) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal certificate: %w", err)
	}
	return c.client.Set(ctx, certificateKey(record.ID), data, c.ttl).Err()
}

// Invalidate removes a certificate from cache.
func (c *CertificateCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, certificateKey(id)).Err()
}

// HealthCheck verifies Redis connectivity.
func (c *CertificateCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *CertificateCache) Close() error {
	return c.client.Close()
}
