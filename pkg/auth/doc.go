// Package auth provides the identity model and credential primitives for the
// tapecert backend.
//
// # Overview
//
// Identities carry one of three roles (admin, distributor, retailer) which
// drive every visibility decision in pkg/authz. This package owns the closed
// Role enumeration, password hashing, and session token issuance; it holds no
// storage logic.
//
// # Password Hashing
//
//	hasher := auth.NewPasswordHasher()
//	salt, key, err := hasher.Hash("s3cret")
//	// store salt+key; verify later:
//	ok := hasher.Verify("s3cret", salt, key)
//
// Hashes are PBKDF2-HMAC-SHA256 with a per-credential random salt.
//
// # Session Tokens
//
//	issuer := auth.NewTokenIssuer(secret, 30*time.Minute)
//	tok, err := issuer.Issue("alice")
//	username, err := issuer.Verify(tok)
//
// Tokens are HS256 JWTs with the username as subject. They are bearer
// credentials resolved back to a stored Identity by pkg/middleware.
//
// # Related Packages
//
//   - pkg/authz: role-scoped authorization decisions
//   - pkg/store: credential persistence
//   - pkg/middleware: HTTP bearer authentication
package auth
