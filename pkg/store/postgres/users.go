package postgres

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/errs"
	"github.com/tapecert/tapecert/pkg/store"
)

const userColumns = `id, username, role, company_name, contact_number, created_by, created_at`

// CreateUser inserts a credential. Password material is stored hex-encoded.
func (s *Store) CreateUser(ctx context.Context, cred *auth.Credential) error {
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, username, role, company_name, contact_number, created_by, password_salt, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		cred.ID,
		cred.Username,
		string(cred.Role),
		cred.CompanyName,
		cred.ContactNumber,
		cred.CreatedBy,
		hex.EncodeToString(cred.PasswordSalt),
		hex.EncodeToString(cred.PasswordHash),
		cred.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Newf(errs.Conflict, "username already registered: %s", cred.Username)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID returns the identity without password material.
func (s *Store) GetUserByID(ctx context.Context, id string) (*auth.Identity, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var ident auth.Identity
	var role string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&ident.ID,
		&ident.Username,
		&role,
		&ident.CompanyName,
		&ident.ContactNumber,
		&ident.CreatedBy,
		&ident.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.NotFound, "user not found: %s", id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	ident.Role = auth.Role(role)

	return &ident, nil
}

// GetUserByUsername returns the full credential for login verification.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	query := `
		SELECT id, username, role, company_name, contact_number, created_by, password_salt, password_hash, created_at
		FROM users
		WHERE username = $1
	`

	var cred auth.Credential
	var role, saltHex, hashHex string
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&cred.ID,
		&cred.Username,
		&role,
		&cred.CompanyName,
		&cred.ContactNumber,
		&cred.CreatedBy,
		&saltHex,
		&hashHex,
		&cred.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.NotFound, "user not found: %s", username)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	cred.Role = auth.Role(role)

	if cred.PasswordSalt, err = hex.DecodeString(saltHex); err != nil {
		return nil, fmt.Errorf("corrupt password salt for %s: %w", username, err)
	}
	if cred.PasswordHash, err = hex.DecodeString(hashHex); err != nil {
		return nil, fmt.Errorf("corrupt password hash for %s: %w", username, err)
	}

	return &cred, nil
}

// ListUsers returns identities within scope, newest first.
func (s *Store) ListUsers(ctx context.Context, scope store.OwnerScope) ([]*auth.Identity, error) {
	if scope.Empty() {
		return []*auth.Identity{}, nil
	}

	query := `SELECT ` + userColumns + ` FROM users`
	var args []interface{}
	if !scope.All {
		query += ` WHERE id IN (` + inPlaceholders(1, len(scope.IDs)) + `)`
		for _, id := range scope.IDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*auth.Identity{}
	for rows.Next() {
		var ident auth.Identity
		var role string
		err := rows.Scan(
			&ident.ID,
			&ident.Username,
			&role,
			&ident.CompanyName,
			&ident.ContactNumber,
			&ident.CreatedBy,
			&ident.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		ident.Role = auth.Role(role)
		users = append(users, &ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// CountUsers returns the total identity count.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, nil
}

// CountUsersByRole returns the identity count for one role.
func (s *Store) CountUsersByRole(ctx context.Context, role auth.Role) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count users by role: %w", err)
	}
	return total, nil
}

// AdminExists reports whether any admin identity is present.
func (s *Store) AdminExists(ctx context.Context) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`
	err := s.db.QueryRowContext(ctx, query, string(auth.RoleAdmin)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check for admin: %w", err)
	}
	return exists, nil
}
