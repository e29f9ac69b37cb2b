// Package api wires the HTTP surface: routers, handler groups, and the
// middleware chain.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/youssef3092004/Spacefy/pkg/auth"
	"github.com/youssef3092004/Spacefy/pkg/cache"
	"github.com/youssef3092004/Spacefy/pkg/httputil"
	"github.com/youssef3092004/Spacefy/pkg/middleware"
	"github.com/youssef3092004/Spacefy/pkg/observability"
	"github.com/youssef3092004/Spacefy/pkg/permissions"
	"github.com/youssef3092004/Spacefy/pkg/storage/postgres"
	"github.com/youssef3092004/Spacefy/pkg/storage/s3"
)

const healthTimeout = 5 * time.Second

// Deps carries everything the handler groups need
type Deps struct {
	DB        *sql.DB
	Logger    *observability.Logger
	Metrics   *observability.Metrics
	Tokens    *auth.TokenManager
	Blacklist *auth.Blacklist
	Resolver  *permissions.Resolver
	PermStore *permissions.PostgresStore
	Cacher    *cache.Cacher

	Users      *postgres.UserStore
	Branches   *postgres.BranchStore
	Businesses *postgres.BusinessStore
	Spaces     *postgres.SpaceStore
	Staff      *postgres.StaffStore
	Objects    *s3.Store

	DefaultRole string
	TracingOn   bool
}

// Server owns the router and the handler groups
type Server struct {
	deps   Deps
	router *mux.Router
}

// NewServer builds the router with the full middleware chain
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}
	s.router = s.buildRouter()
	return s
}

// Handler returns the root http handler
func (s *Server) Handler() http.Handler {
	if s.deps.TracingOn {
		return otelhttp.NewHandler(s.router, "spacefy")
	}
	return s.router
}

func (s *Server) buildRouter() *mux.Router {
	root := mux.NewRouter()
	root.Use(httputil.RequestIDMiddleware)
	root.Use(httputil.LoggingMiddleware(s.deps.Logger))
	root.Use(httputil.RecoveryMiddleware(s.deps.Logger))
	root.Use(httputil.CORSMiddleware)
	if s.deps.Metrics != nil {
		root.Use(observability.HTTPMetricsMiddleware(s.deps.Metrics))
	}

	root.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.deps.Metrics != nil {
		root.Handle("/metrics", s.deps.Metrics.Handler()).Methods("GET")
	}

	authn := middleware.NewAuthenticator(s.deps.Tokens, s.deps.Blacklist)

	api := root.PathPrefix("/api").Subrouter()

	// auth routes are public except logout
	newAuthHandler(s.deps, authn).RegisterRoutes(api)

	// everything else requires a verified token
	protected := api.NewRoute().Subrouter()
	protected.Use(authn.VerifyToken)

	newPermissionHandler(s.deps).RegisterRoutes(protected)
	newRoleHandler(s.deps).RegisterRoutes(protected)
	newUserHandler(s.deps).RegisterRoutes(protected)
	newBranchHandler(s.deps).RegisterRoutes(protected)
	newBusinessHandler(s.deps).RegisterRoutes(protected)
	newSpaceHandler(s.deps).RegisterRoutes(protected)
	newStaffHandler(s.deps).RegisterRoutes(protected)

	return root
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.deps.DB.PingContext(ctx); err != nil {
		httputil.WriteErrorStatus(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	httputil.WriteMessage(w, "ok")
}
