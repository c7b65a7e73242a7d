// Package postgres implements store.Store on PostgreSQL, with an optional
// Redis read-through cache for certificate lookups and optional
// content-addressed S3 offload for image payloads.
//
// # Layout
//
// Metadata lives in four tables: users, relationships, certificates, and
// certificate_images. Detail groups (vehicle, owner, fitment) are stored as
// JSON text columns; images live in a child table keyed by (certificate_id,
// tag) so attaching one image never rewrites the others.
//
// # Portability
//
// The schema and queries stay within the dialect subset shared by
// PostgreSQL and SQLite: $n placeholders, timestamps passed as arguments
// rather than NOW(), and ON CONFLICT upserts. Unit tests run the full store
// against an in-memory SQLite database; integration tests (build tag
// "integration") run it against a real PostgreSQL container.
//
// # Caching
//
// When enabled, GetCertificate consults Redis first and populates it on
// miss. Every certificate mutation invalidates the entry. Cache failures
// are soft; the database remains the source of truth.
package postgres
