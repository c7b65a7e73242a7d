package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/contextkeys"
	"github.com/tapecert/tapecert/pkg/errs"
	"github.com/tapecert/tapecert/pkg/httputil"
)

// register handles POST /api/auth/register
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}
	role, ok := auth.ParseRole(req.Role)
	if !ok {
		httputil.WriteBadRequest(w, "invalid role: "+req.Role)
		return
	}

	ctx := r.Context()
	caller := contextkeys.IdentityFrom(ctx)

	// Uniqueness before the role gate: a taken username is a conflict no
	// matter who asks.
	if _, err := s.store.GetUserByUsername(ctx, req.Username); err == nil {
		s.registration(role, "conflict")
		httputil.WriteConflict(w, "username already registered: "+req.Username)
		return
	} else if !errs.IsNotFound(err) {
		httputil.WriteInternalError(w, err)
		return
	}

	if err := s.engine.CanRegister(caller, role); err != nil {
		s.decision("register", err)
		s.registration(role, "denied")
		httputil.WriteErrKind(w, err)
		return
	}
	s.decision("register", nil)

	salt, key, err := s.hasher.Hash(req.Password)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	cred := &auth.Credential{
		Identity: auth.Identity{
			ID:            uuid.NewString(),
			Username:      req.Username,
			Role:          role,
			CompanyName:   req.CompanyName,
			ContactNumber: req.ContactNumber,
			CreatedAt:     time.Now().UTC(),
		},
		PasswordSalt: salt,
		PasswordHash: key,
	}
	if caller != nil {
		cred.CreatedBy = &caller.ID
	}

	if err := s.store.CreateUser(ctx, cred); err != nil {
		s.registration(role, "error")
		httputil.WriteErrKind(w, err)
		return
	}

	// A distributor registering a retailer also claims it into its network.
	if s.engine.LinksEdge(caller, role) {
		if err := s.store.AddEdge(ctx, caller.ID, cred.ID); err != nil {
			s.logger.WithContext(ctx).WithError(err).
				WithField("retailer_id", cred.ID).
				Error("user created but relationship edge failed")
			httputil.WriteErrKind(w, err)
			return
		}
		s.engine.InvalidateReachable(caller.ID)
	}

	s.registration(role, "created")
	httputil.WriteCreated(w, cred.Identity)
}

// login handles POST /api/auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	ctx := r.Context()
	cred, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errs.IsNotFound(err) {
			// Same answer as a bad password so usernames stay unprobeable.
			s.loginResult("failure")
			httputil.WriteUnauthorized(w, "incorrect username or password")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	if !s.hasher.Verify(req.Password, cred.PasswordSalt, cred.PasswordHash) {
		s.loginResult("failure")
		httputil.WriteUnauthorized(w, "incorrect username or password")
		return
	}

	token, err := s.tokens.Issue(cred.Username)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	s.loginResult("success")
	httputil.WriteSuccess(w, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        cred.Identity,
	})
}

// me handles GET /api/auth/me
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	caller := contextkeys.IdentityFrom(r.Context())
	if caller == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteSuccess(w, caller)
}

func (s *Server) loginResult(status string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Server) registration(role auth.Role, status string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(string(role), status).Inc()
	}
}
