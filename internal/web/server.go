// Package web provides the HTTP server for the membership registration
// API.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pns-society/membership-api/internal/config"
	"github.com/pns-society/membership-api/internal/ingest"
	"github.com/pns-society/membership-api/internal/web/middleware"
)

// Registrar processes one parsed registration submission.
type Registrar interface {
	Register(ctx context.Context, form *ingest.Form) (uuid.UUID, error)
}

// Pinger reports whether the persistent store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the registration API.
type Server struct {
	registrar Registrar
	pinger    Pinger
	cfg       *config.Config
	router    *chi.Mux
	server    *http.Server
}

// NewServer creates a Server. pinger may be nil, in which case the health
// endpoint only reports process liveness.
func NewServer(registrar Registrar, pinger Pinger, cfg *config.Config) *Server {
	s := &Server{
		registrar: registrar,
		pinger:    pinger,
		cfg:       cfg,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)

	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// The registration endpoint accepts POST only; everything else gets a
	// 405 with an Allow header.
	s.router.MethodNotAllowed(handleMethodNotAllowed)

	s.router.Post("/api/auth/register", s.handleRegister)
	s.router.Get("/healthz", s.handleHealth)

	// Stored files are public-served under the configured prefix.
	files := http.FileServer(http.Dir(s.cfg.Upload.Dir))
	s.router.Handle(s.cfg.Upload.PublicPrefix+"/*",
		http.StripPrefix(s.cfg.Upload.PublicPrefix+"/", files))
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Uploaded files are attacker-named; never let browsers sniff them
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
