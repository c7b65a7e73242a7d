// Package config loads application configuration from TAPECERT_* environment
// variables and validates it before anything starts.
//
// Required settings:
//
//	TAPECERT_JWT_SECRET     signing key for access tokens
//	TAPECERT_POSTGRES_URL   primary database DSN
//
// Everything else has a default: the API listens on :8080, health and
// metrics on :9090, tokens live 30 minutes, and the bootstrap admin is
// admin/admin123 (override TAPECERT_BOOTSTRAP_ADMIN_PASSWORD outside of
// development). Setting TAPECERT_REDIS_URL enables the certificate cache
// unless TAPECERT_CACHE_ENABLED=false; TAPECERT_S3_ENABLED=true turns on
// image blob offload.
package config
