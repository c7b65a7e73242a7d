// Package authz is the authorization engine: the single place where role
// semantics live.
//
// # Model
//
// Three roles form a strict capability hierarchy for registration but NOT
// for certificate mutation:
//
//   - admin: sees all users and certificates, creates distributors and
//     retailers, but cannot modify certificates.
//   - distributor: sees and creates retailers linked to it through
//     relationship edges, and sees (read-only) their certificates.
//   - retailer: sees only itself and its own certificates, and is the only
//     role that can create or modify certificates.
//
// Visibility questions are answered as a store.OwnerScope so list and
// count queries stay in SQL; single-record questions (CanAccessCertificate,
// CanMutateCertificate) are answered per record.
//
// # Decision ordering
//
// The engine deliberately knows nothing about HTTP or request ordering.
// Handlers are responsible for sequencing checks (for example, existence
// before permission on certificate reads) so the API does not leak whether
// a record exists to callers who cannot see it anyway.
//
// # Caching
//
// A distributor's reachable retailer set is consulted on every scoped list
// and dashboard call, so it sits behind a small LRU. The set only grows
// when that distributor registers a retailer, and registration invalidates
// the entry, so the cache never serves a stale shrink (edges are never
// removed).
package authz
