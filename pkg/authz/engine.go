package authz

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/cert"
	"github.com/tapecert/tapecert/pkg/errs"
	"github.com/tapecert/tapecert/pkg/store"
)

// reachableCacheSize bounds the per-distributor retailer-set cache.
const reachableCacheSize = 1024

// Engine answers every authorization question in the system. All decisions
// reduce to the caller's role plus, for distributors, the set of retailers
// reachable through relationship edges.
type Engine struct {
	rels      store.RelationshipStore
	reachable *lru.Cache[string, []string]
}

// NewEngine builds an engine over the relationship store.
func NewEngine(rels store.RelationshipStore) *Engine {
	cache, err := lru.New[string, []string](reachableCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size
		panic(fmt.Sprintf("authz: bad cache size: %v", err))
	}
	return &Engine{rels: rels, reachable: cache}
}

// CanRegister decides whether caller may create an account with the given
// role. Admin accounts are never creatable through registration; caller may
// be nil for unauthenticated requests.
func (e *Engine) CanRegister(caller *auth.Identity, newRole auth.Role) error {
	switch newRole {
	case auth.RoleAdmin:
		return errs.New(errs.Forbidden, "admin accounts cannot be created through registration")
	case auth.RoleDistributor:
		if caller == nil || caller.Role != auth.RoleAdmin {
			return errs.New(errs.Forbidden, "only admin can create distributor accounts")
		}
		return nil
	case auth.RoleRetailer:
		if caller == nil || (caller.Role != auth.RoleAdmin && caller.Role != auth.RoleDistributor) {
			return errs.New(errs.Forbidden, "only admin or distributor can create retailer accounts")
		}
		return nil
	default:
		return errs.Newf(errs.InvalidInput, "unknown role: %s", newRole)
	}
}

// LinksEdge reports whether registering newRole as caller should also
// create a distributor→retailer relationship edge.
func (e *Engine) LinksEdge(caller *auth.Identity, newRole auth.Role) bool {
	return caller != nil && caller.Role == auth.RoleDistributor && newRole == auth.RoleRetailer
}

// ScopeUsers returns the user-listing scope for caller. Retailers may not
// list users at all.
func (e *Engine) ScopeUsers(ctx context.Context, caller *auth.Identity) (store.OwnerScope, error) {
	switch caller.Role {
	case auth.RoleAdmin:
		return store.ScopeAll(), nil
	case auth.RoleDistributor:
		ids, err := e.ReachableRetailers(ctx, caller.ID)
		if err != nil {
			return store.OwnerScope{}, err
		}
		return store.ScopeIDs(ids...), nil
	case auth.RoleRetailer:
		return store.OwnerScope{}, errs.New(errs.Forbidden, "retailers cannot list users")
	default:
		return store.OwnerScope{}, errs.Newf(errs.Forbidden, "unknown role: %s", caller.Role)
	}
}

// ScopeCertificates returns the certificate visibility scope for caller:
// admin sees everything, a distributor sees its linked retailers, a retailer
// sees only itself. A distributor with no links gets an empty scope, which
// lists as an empty result rather than an error.
func (e *Engine) ScopeCertificates(ctx context.Context, caller *auth.Identity) (store.OwnerScope, error) {
	switch caller.Role {
	case auth.RoleAdmin:
		return store.ScopeAll(), nil
	case auth.RoleDistributor:
		ids, err := e.ReachableRetailers(ctx, caller.ID)
		if err != nil {
			return store.OwnerScope{}, err
		}
		return store.ScopeIDs(ids...), nil
	case auth.RoleRetailer:
		return store.ScopeIDs(caller.ID), nil
	default:
		return store.OwnerScope{}, errs.Newf(errs.Forbidden, "unknown role: %s", caller.Role)
	}
}

// CanAccessCertificate decides read access to a single certificate.
func (e *Engine) CanAccessCertificate(ctx context.Context, caller *auth.Identity, c *cert.Certificate) error {
	switch caller.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleDistributor:
		linked, err := e.rels.EdgeExists(ctx, caller.ID, c.RetailerID)
		if err != nil {
			return err
		}
		if !linked {
			return errs.New(errs.Forbidden, "certificate belongs to an unlinked retailer")
		}
		return nil
	case auth.RoleRetailer:
		if c.RetailerID != caller.ID {
			return errs.New(errs.Forbidden, "certificate belongs to another retailer")
		}
		return nil
	default:
		return errs.Newf(errs.Forbidden, "unknown role: %s", caller.Role)
	}
}

// CanMutateCertificate decides write access. Only the owning retailer may
// mutate; admin and distributor access is read-only.
func (e *Engine) CanMutateCertificate(caller *auth.Identity, c *cert.Certificate) error {
	if caller.Role != auth.RoleRetailer || c.RetailerID != caller.ID {
		return errs.New(errs.Forbidden, "only the owning retailer can modify a certificate")
	}
	return nil
}

// CanCreateCertificate decides whether caller may create certificates.
func (e *Engine) CanCreateCertificate(caller *auth.Identity) error {
	if caller.Role != auth.RoleRetailer {
		return errs.New(errs.Forbidden, "only retailers can create certificates")
	}
	return nil
}

// ReachableRetailers returns the retailer ids linked to a distributor,
// served from a small LRU that registration invalidates.
func (e *Engine) ReachableRetailers(ctx context.Context, distributorID string) ([]string, error) {
	if ids, ok := e.reachable.Get(distributorID); ok {
		return ids, nil
	}

	ids, err := e.rels.RetailerIDs(ctx, distributorID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve reachable retailers: %w", err)
	}
	e.reachable.Add(distributorID, ids)
	return ids, nil
}

// InvalidateReachable drops the cached retailer set for a distributor.
// Called after a new relationship edge is added.
func (e *Engine) InvalidateReachable(distributorID string) {
	e.reachable.Remove(distributorID)
}
