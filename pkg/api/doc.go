// Package api exposes the HTTP surface of the certificate service.
//
// All application routes live under the /api prefix and speak JSON. The
// server wires four concerns around a gorilla/mux router:
//
//   - authentication: bearer-token middleware resolves the caller before
//     protected handlers run; /auth/register accepts anonymous callers
//     because the role rules themselves decide who may register whom
//   - authorization: every handler defers role and ownership decisions to
//     the authz engine and maps its error kinds to HTTP statuses
//   - persistence: handlers talk to the store through its interfaces only
//   - observability: request logging, panic recovery, request IDs, and
//     optional Prometheus instrumentation wrap the whole router
//
// # Routes
//
//	GET  /api/                                    service banner
//	POST /api/auth/register                       create an account (role-gated)
//	POST /api/auth/login                          exchange credentials for a token
//	GET  /api/auth/me                             caller's own identity
//	GET  /api/users                               users visible to the caller
//	POST /api/certificates                        create a certificate (retailer)
//	GET  /api/certificates                        certificates visible to the caller
//	GET  /api/certificates/{id}                   one certificate
//	PUT  /api/certificates/{id}                   partial update (owning retailer)
//	POST /api/certificates/{id}/upload-image      attach a tagged photo (owning retailer)
//	GET  /api/dashboard/stats                     role-shaped aggregates
//
// Single-certificate reads check existence before permission, so a caller
// probing a foreign id gets 404 for ids that do not exist and 403 for ids
// that do. Registration checks username uniqueness before the role gate, so
// a taken username answers 409 regardless of who asks.
package api
