package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/lib/pq" // registers the "postgres" driver

	"github.com/tapecert/tapecert/pkg/store"
)

// Store implements store.Store using PostgreSQL, with an optional Redis
// read-through cache for certificates and an optional S3 offload for image
// payloads.
type Store struct {
	db     *sql.DB
	cache  *CertificateCache
	blobs  *ImageBlobStore
	config store.Config
}

// New connects to PostgreSQL and wires the optional cache and blob backends.
func New(cfg store.Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.PostgresMaxConns)
	db.SetMaxIdleConns(cfg.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	var cache *CertificateCache
	if cfg.CacheEnabled && cfg.RedisURL != "" {
		cache, err = NewCertificateCache(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
	}

	var blobs *ImageBlobStore
	if cfg.S3Enabled {
		blobs, err = NewImageBlobStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 blob store: %w", err)
		}
	}

	return &Store{
		db:     db,
		cache:  cache,
		blobs:  blobs,
		config: cfg,
	}, nil
}

// NewWithDB wraps an existing database handle. Used by tests and by callers
// that manage their own pool; cache and blob backends stay disabled.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, config: store.DefaultConfig()}
}

// EnsureSchema creates the tables if they do not exist. Statements are kept
// portable across PostgreSQL and SQLite so the same schema backs both
// production and in-memory tests.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			company_name TEXT,
			contact_number TEXT,
			created_by TEXT,
			password_salt TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			distributor_id TEXT NOT NULL,
			retailer_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (distributor_id, retailer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS certificates (
			id TEXT PRIMARY KEY,
			certificate_no TEXT NOT NULL UNIQUE,
			retailer_id TEXT NOT NULL,
			dealer_name TEXT NOT NULL DEFAULT '',
			dealer_license TEXT NOT NULL DEFAULT '',
			vehicle_details TEXT NOT NULL,
			owner_details TEXT NOT NULL,
			fitment_details TEXT NOT NULL,
			fitment_date TIMESTAMP NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS certificate_images (
			certificate_id TEXT NOT NULL,
			tag TEXT NOT NULL,
			payload TEXT NOT NULL,
			object_key TEXT,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (certificate_id, tag)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_certificates_retailer ON certificates (retailer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_distributor ON relationships (distributor_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// HealthCheck verifies database (and cache, when enabled) connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the underlying pool for health checks and metrics collectors.
func (s *Store) DB() *sql.DB {
	return s.db
}

// RedisClient exposes the cache connection, nil when caching is disabled.
func (s *Store) RedisClient() *redis.Client {
	if s.cache == nil {
		return nil
	}
	return s.cache.client
}

// Close releases the database pool and the cache connection.
func (s *Store) Close() error {
	if s.cache != nil {
		s.cache.Close()
	}
	return s.db.Close()
}

// inPlaceholders renders "$n, $n+1, ..." for an IN clause starting at `from`.
func inPlaceholders(from, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}

// isUniqueViolation reports whether err is a unique-constraint failure from
// either PostgreSQL or SQLite.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
