package api

import (
	"net/http"

	"github.com/tapecert/tapecert/pkg/contextkeys"
	"github.com/tapecert/tapecert/pkg/httputil"
)

// dashboardStats handles GET /api/dashboard/stats
func (s *Server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := contextkeys.IdentityFrom(ctx)

	out, err := s.reporter.Dashboard(ctx, caller)
	if err != nil {
		httputil.WriteErrKind(w, err)
		return
	}
	httputil.WriteSuccess(w, out)
}
