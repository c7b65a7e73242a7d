package api

import (
	"net/http"

	"github.com/tapecert/tapecert/pkg/contextkeys"
	"github.com/tapecert/tapecert/pkg/httputil"
)

// listUsers handles GET /api/users. Admins see everyone; a distributor sees
// its linked retailers, which may be an empty list.
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := contextkeys.IdentityFrom(ctx)

	scope, err := s.engine.ScopeUsers(ctx, caller)
	s.decision("list_users", err)
	if err != nil {
		httputil.WriteErrKind(w, err)
		return
	}

	users, err := s.store.ListUsers(ctx, scope)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, users)
}
