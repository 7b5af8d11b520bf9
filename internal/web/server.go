// Package web provides the HTTP server and handlers for the extraction form.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/formforge/formforge/internal/audit"
	"github.com/formforge/formforge/internal/config"
	"github.com/formforge/formforge/internal/form"
	"github.com/formforge/formforge/internal/i18n"
	"github.com/formforge/formforge/internal/inference"
	"github.com/formforge/formforge/internal/web/middleware"
)

// Server is the HTTP server for the extraction form application.
type Server struct {
	cfg    *config.Config
	store  *form.Store
	bundle *i18n.Bundle
	client *inference.Client
	audit  *audit.Service
	router *chi.Mux
	server *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, store *form.Store, bundle *i18n.Bundle, client *inference.Client, auditSvc *audit.Service) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		bundle: bundle,
		client: client,
		audit:  auditSvc,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))

	// The request timeout must outlast a full extraction call.
	s.router.Use(chimw.Timeout(s.cfg.Inference.Timeout + 30*time.Second))

	// Security hardening
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes. Everything except the health check
// runs under the session middleware.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Group(func(r chi.Router) {
		r.Use(s.withSession)

		// Page
		r.Get("/", s.handleIndex)

		// Preview bytes (token-scoped, outside /api so the browser can
		// load them directly into an iframe or img tag)
		r.Get("/preview/{token}", s.handleServePreview)

		r.Route("/api", func(r chi.Router) {
			// Field commands
			r.Post("/fields", s.handleCreateField)
			r.Patch("/fields/{id}", s.handleUpdateField)
			r.Delete("/fields/{id}", s.handleDeleteField)
			r.Post("/fields/move", s.handleMoveField)

			// Compiled schema preview
			r.Get("/schema", s.handleSchema)

			// File staging
			r.Get("/files", s.handleListFiles)
			r.Post("/files", s.handleUploadFiles)
			r.Delete("/files/{index}", s.handleDeleteFile)

			// Preview lifecycle
			r.Post("/files/{index}/preview", s.handleOpenPreview)
			r.Delete("/preview", s.handleClosePreview)

			// Submission
			r.Post("/submit", s.handleSubmit)
			r.Post("/clear", s.handleClear)

			// Audit log (404 when no database is configured)
			r.Get("/audit", s.handleAuditLog)
		})
	})
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

	slog.Info("starting server", "addr", s.server.Addr)
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
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking; preview bytes render in a same-origin frame
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")

		// Content Security Policy - restrict resource loading
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-src 'self'; font-src 'self'")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
