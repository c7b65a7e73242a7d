// Package store defines the persistence interfaces for the TapeCert
// certificate registry.
//
// # Overview
//
// The store abstraction separates the HTTP/authorization layers from the
// database. Three focused interfaces cover the domain:
//
//   - UserStore: identities and password credentials
//   - RelationshipStore: distributor→retailer edges
//   - CertificateStore: fitment certificates and their images
//
// They compose into the unified Store interface implemented by
// pkg/store/postgres.
//
// # Scoped queries
//
// List and count operations take an OwnerScope computed by the
// authorization engine. The store applies the scope verbatim:
//
//	scope := store.ScopeAll()             // admin: everything
//	scope := store.ScopeIDs("r1", "r2")   // distributor: linked retailers
//	scope := store.ScopeIDs(callerID)     // retailer: self only
//
// An empty, non-All scope matches nothing and returns an empty result,
// never an error. A distributor with no linked retailers therefore sees
// empty lists and zero counts.
//
// # Partial updates
//
// CertificateUpdate carries pointer fields; nil means "leave unchanged".
// Implementations must translate this into field-level SET clauses so two
// concurrent updates to disjoint fields both land. Full-record
// read-modify-write replacement is not part of the contract.
//
// # Error kinds
//
// Implementations return pkg/errs kinds for the outcomes callers branch
// on: Conflict for unique-constraint violations (duplicate username,
// duplicate relationship edge) and NotFound for missing rows. All other
// failures are wrapped infrastructure errors.
package store
