package store

import (
	"context"

	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/cert"
)

// OwnerScope narrows a collection query to a set of owners. It is computed by
// the authorization engine and consumed verbatim by the store: All overrides
// the ID list; an empty, non-All scope matches nothing (and is not an error).
type OwnerScope struct {
	All bool
	IDs []string
}

// ScopeAll returns an unrestricted scope.
func ScopeAll() OwnerScope {
	return OwnerScope{All: true}
}

// ScopeIDs returns a scope restricted to the given owner IDs.
func ScopeIDs(ids ...string) OwnerScope {
	return OwnerScope{IDs: ids}
}

// Empty reports whether the scope can match nothing.
func (s OwnerScope) Empty() bool {
	return !s.All && len(s.IDs) == 0
}

// UserStore persists identities and their credentials.
type UserStore interface {
	// CreateUser inserts a credential; duplicate usernames fail with a
	// conflict kind.
	CreateUser(ctx context.Context, cred *auth.Credential) error
	GetUserByID(ctx context.Context, id string) (*auth.Identity, error)
	// GetUserByUsername returns the credential, including password
	// material, for login verification.
	GetUserByUsername(ctx context.Context, username string) (*auth.Credential, error)
	// ListUsers returns identities within scope, never password material.
	ListUsers(ctx context.Context, scope OwnerScope) ([]*auth.Identity, error)
	CountUsers(ctx context.Context) (int64, error)
	CountUsersByRole(ctx context.Context, role auth.Role) (int64, error)
	// AdminExists reports whether any admin identity is present.
	AdminExists(ctx context.Context) (bool, error)
}

// RelationshipStore persists distributor→retailer edges.
type RelationshipStore interface {
	// AddEdge inserts an edge; a duplicate (distributor, retailer) pair
	// fails with a conflict kind.
	AddEdge(ctx context.Context, distributorID, retailerID string) error
	// RetailerIDs returns the retailer ids linked to a distributor.
	RetailerIDs(ctx context.Context, distributorID string) ([]string, error)
	EdgeExists(ctx context.Context, distributorID, retailerID string) (bool, error)
}

// CertificateUpdate carries a partial certificate mutation; nil fields are
// left untouched. ID, certificate number, and owner are not updatable.
type CertificateUpdate struct {
	DealerName     *string
	DealerLicense  *string
	VehicleDetails *cert.VehicleDetails
	OwnerDetails   *cert.OwnerDetails
	FitmentDetails *cert.FitmentDetails
	Status         *cert.Status
}

// IsZero reports whether the update contains no fields.
func (u CertificateUpdate) IsZero() bool {
	return u.DealerName == nil && u.DealerLicense == nil &&
		u.VehicleDetails == nil && u.OwnerDetails == nil &&
		u.FitmentDetails == nil && u.Status == nil
}

// CertificateStore persists fitment certificates and their images.
type CertificateStore interface {
	CreateCertificate(ctx context.Context, c *cert.Certificate) error
	GetCertificate(ctx context.Context, id string) (*cert.Certificate, error)
	// ListCertificates returns certificates owned by the scope, images
	// included, newest first.
	ListCertificates(ctx context.Context, scope OwnerScope) ([]*cert.Certificate, error)
	// UpdateCertificateFields applies the partial update with field-level
	// set semantics and bumps updated_at; it returns the fresh record.
	UpdateCertificateFields(ctx context.Context, id string, upd CertificateUpdate) (*cert.Certificate, error)
	// AttachImage upserts one tagged image payload and bumps the parent
	// certificate's updated_at. Re-attaching a tag overwrites.
	AttachImage(ctx context.Context, id string, tag cert.ImageTag, payload string) error
	CountCertificates(ctx context.Context, scope OwnerScope, status *cert.Status) (int64, error)
}

// Store is the full persistence surface used by the application.
type Store interface {
	UserStore
	RelationshipStore
	CertificateStore

	EnsureSchema(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Close() error
}
