//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/cert"
	"github.com/tapecert/tapecert/pkg/store"
)

// setupPostgres starts a PostgreSQL container and returns a connected Store.
func setupPostgres(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "tapecert",
			"POSTGRES_PASSWORD": "tapecert",
			"POSTGRES_DB":       "tapecert",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := store.DefaultConfig()
	cfg.PostgresURL = fmt.Sprintf("postgres://tapecert:tapecert@%s:%s/tapecert?sslmode=disable", host, port.Port())

	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func TestIntegration_PostgresLifecycle(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	// users
	cred := testCredential(auth.RoleRetailer, "shop1")
	require.NoError(t, s.CreateUser(ctx, cred))

	dup := testCredential(auth.RoleDistributor, "shop1")
	err := s.CreateUser(ctx, dup)
	assert.Error(t, err, "pq unique violation should map to conflict")

	got, err := s.GetUserByUsername(ctx, "shop1")
	require.NoError(t, err)
	assert.Equal(t, cred.PasswordHash, got.PasswordHash)

	// relationships
	require.NoError(t, s.AddEdge(ctx, "dist1", cred.ID))
	ids, err := s.RetailerIDs(ctx, "dist1")
	require.NoError(t, err)
	assert.Equal(t, []string{cred.ID}, ids)

	// certificates
	c := testCertificate(cred.ID)
	require.NoError(t, s.CreateCertificate(ctx, c))

	require.NoError(t, s.AttachImage(ctx, c.ID, cert.TagFront, "aW1n"))
	require.NoError(t, s.AttachImage(ctx, c.ID, cert.TagFront, "bmV3"))

	fresh, err := s.GetCertificate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "bmV3", fresh.Images[cert.TagFront])

	submitted := cert.StatusSubmitted
	updated, err := s.UpdateCertificateFields(ctx, c.ID, store.CertificateUpdate{Status: &submitted})
	require.NoError(t, err)
	assert.Equal(t, cert.StatusSubmitted, updated.Status)

	count, err := s.CountCertificates(ctx, store.ScopeIDs(cred.ID), &submitted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// setupMinIO starts a MinIO container and returns a blob store against it.
func setupMinIO(t *testing.T) *ImageBlobStore {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start MinIO container")
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	cfg := store.DefaultConfig()
	cfg.S3Enabled = true
	cfg.S3Endpoint = "http://" + host + ":" + port.Port()
	cfg.S3AccessKey = "minioadmin"
	cfg.S3SecretKey = "minioadmin"
	cfg.S3Bucket = "test-bucket"
	cfg.S3UsePathStyle = true

	blobs, err := NewImageBlobStore(cfg)
	require.NoError(t, err)
	return blobs
}

func TestIntegration_ImageBlobStore(t *testing.T) {
	blobs := setupMinIO(t)
	ctx := context.Background()

	payload := []byte("aW1hZ2UtcGF5bG9hZA==")

	key, err := blobs.Put(ctx, payload)
	require.NoError(t, err)
	assert.Contains(t, key, "certificate-images/sha256/")

	// identical content gets the same key
	again, err := blobs.Put(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	got, err := blobs.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
