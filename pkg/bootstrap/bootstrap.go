// Package bootstrap prepares a fresh deployment: it applies the schema and
// guarantees exactly one way into an empty system, a default admin account.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/config"
	"github.com/tapecert/tapecert/pkg/errs"
	"github.com/tapecert/tapecert/pkg/observability"
	"github.com/tapecert/tapecert/pkg/store"
)

// Run applies the schema and creates the bootstrap admin when no admin
// exists yet. It is idempotent: repeated and concurrent runs converge on
// the same state.
func Run(ctx context.Context, s store.Store, cfg config.AuthConfig, logger *observability.Logger) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	exists, err := s.AdminExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for admin: %w", err)
	}
	if exists {
		logger.Debug("admin account present, skipping bootstrap")
		return nil
	}

	hasher := auth.NewPasswordHasher()
	salt, key, err := hasher.Hash(cfg.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	company := cfg.BootstrapAdminCompany
	cred := &auth.Credential{
		Identity: auth.Identity{
			ID:          uuid.NewString(),
			Username:    cfg.BootstrapAdminUsername,
			Role:        auth.RoleAdmin,
			CompanyName: &company,
		},
		PasswordSalt: salt,
		PasswordHash: key,
	}

	if err := s.CreateUser(ctx, cred); err != nil {
		// another instance won the race; the admin exists either way
		if errs.IsConflict(err) {
			logger.Info("bootstrap admin created concurrently elsewhere")
			return nil
		}
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	logger.WithField("username", cred.Username).Info("bootstrap admin created")
	return nil
}
