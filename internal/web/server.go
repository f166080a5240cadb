// Package web serves the tally JSON API over HTTP.
package web

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hpungsan/tally/internal/config"
)

// maxBodyBytes caps request bodies. Inputs themselves are limited by
// max_input_chars; this only guards the JSON envelope.
const maxBodyBytes = 8 << 20

// Server is the HTTP server for the tally API.
type Server struct {
	handlers *Handlers
	router   *chi.Mux
}

// NewServer creates a Server with middleware and routes configured.
func NewServer(db *sql.DB, cfg *config.Config, version string) *Server {
	s := &Server{
		handlers: &Handlers{db: db, cfg: cfg, version: version},
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestSize(maxBodyBytes))
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.Get("/healthz", h.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/add", h.HandleAdd)
		r.Post("/purge", h.HandlePurge)

		r.Get("/evaluations", h.HandleList)
		r.Get("/evaluations/latest", h.HandleLatest)
		r.Get("/evaluations/{id}", h.HandleFetch)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, errNoRoute(r))
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, errMethodNotAllowed(r))
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer wraps s in an http.Server listening on bind:port.
func (s *Server) HTTPServer(bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("tally API listening on http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
