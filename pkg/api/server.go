package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/tapecert/tapecert/pkg/auth"
	"github.com/tapecert/tapecert/pkg/authz"
	"github.com/tapecert/tapecert/pkg/httputil"
	"github.com/tapecert/tapecert/pkg/middleware"
	"github.com/tapecert/tapecert/pkg/observability"
	"github.com/tapecert/tapecert/pkg/stats"
	"github.com/tapecert/tapecert/pkg/store"
)

// Server is the HTTP front of the certificate service.
type Server struct {
	store    store.Store
	engine   *authz.Engine
	reporter *stats.Reporter
	tokens   *auth.TokenIssuer
	hasher   *auth.PasswordHasher
	logger   *observability.Logger
	metrics  *observability.Metrics

	router  *mux.Router
	handler http.Handler
}

// Options carries the optional pieces of server construction.
type Options struct {
	// CORSOrigins lists the allowed CORS origins; empty means "*".
	CORSOrigins []string
	// Metrics, when non-nil, enables Prometheus instrumentation of every
	// request plus per-handler business counters.
	Metrics *observability.Metrics
}

// NewServer wires the router, middleware chain, and handlers.
func NewServer(st store.Store, engine *authz.Engine, reporter *stats.Reporter, tokens *auth.TokenIssuer, logger *observability.Logger, opts Options) *Server {
	s := &Server{
		store:    st,
		engine:   engine,
		reporter: reporter,
		tokens:   tokens,
		hasher:   auth.NewPasswordHasher(),
		logger:   logger,
		metrics:  opts.Metrics,
		router:   mux.NewRouter(),
	}

	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowCredentials: true,
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost,
			http.MethodPut, http.MethodDelete, http.MethodOptions},
	})
	s.handler = c.Handler(s.router)

	return s
}

// setupRoutes configures the middleware chain and all API routes.
func (s *Server) setupRoutes() {
	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.RecoveryMiddleware(s.logger.Slog()))
	s.router.Use(httputil.LoggingMiddleware(s.logger.Slog()))
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/", s.root).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)

	// Registration is role-gated, not auth-gated: anonymous callers reach
	// the handler and the engine decides which roles they may create.
	optionalAuth := middleware.NewAuthMiddleware(s.tokens, s.store, true)
	api.Handle("/auth/register", optionalAuth.Handler(http.HandlerFunc(s.register))).Methods(http.MethodPost)

	requiredAuth := middleware.NewAuthMiddleware(s.tokens, s.store, false)
	protected := api.NewRoute().Subrouter()
	protected.Use(requiredAuth.Handler)

	protected.HandleFunc("/auth/me", s.me).Methods(http.MethodGet)
	protected.Handle("/users",
		listersOnly(http.HandlerFunc(s.listUsers))).Methods(http.MethodGet)
	protected.HandleFunc("/dashboard/stats", s.dashboardStats).Methods(http.MethodGet)

	protected.Handle("/certificates",
		retailersOnly(http.HandlerFunc(s.createCertificate))).Methods(http.MethodPost)
	protected.HandleFunc("/certificates", s.listCertificates).Methods(http.MethodGet)
	protected.HandleFunc("/certificates/{id}", s.getCertificate).Methods(http.MethodGet)
	protected.Handle("/certificates/{id}",
		retailersOnly(http.HandlerFunc(s.updateCertificate))).Methods(http.MethodPut)
	protected.Handle("/certificates/{id}/upload-image",
		retailersOnly(http.HandlerFunc(s.uploadImage))).Methods(http.MethodPost)
}

var (
	listersOnly   = middleware.RequireRoles(auth.RoleAdmin, auth.RoleDistributor)
	retailersOnly = middleware.RequireRoles(auth.RoleRetailer)
)

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// root handles GET /api/
func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{
		"message": "Vehicle Conspicuity Management System API",
		"status":  "ok",
	})
}

// decision records an authorization outcome when metrics are enabled.
func (s *Server) decision(operation string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "allow"
	if err != nil {
		outcome = "deny"
	}
	s.metrics.DecisionsTotal.WithLabelValues(operation, outcome).Inc()
}
