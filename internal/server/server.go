// Package server exposes the engine over a small JSON HTTP API.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"verdict/internal/engine"
	"verdict/internal/logging"
	"verdict/internal/version"
)

// Server is the verdict HTTP API server
type Server struct {
	engine  *engine.Engine
	router  chi.Router
	logger  *logging.Logger
	started time.Time
}

// New creates a server over an opened engine
func New(eng *engine.Engine, logger *logging.Logger) *Server {
	s := &Server{
		engine:  eng,
		logger:  logger,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			if s.engine.Config.Server.RequireAuth {
				r.Use(s.requireToken)
			}
			r.Post("/classify", s.handleClassify)
			r.Post("/scan", s.handleScan)
			r.Get("/cache/stats", s.handleCacheStats)
			r.Post("/cache/sweep", s.handleCacheSweep)
		})
	})

	s.router = r
}

// requireToken enforces bearer-token auth against the token store
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			writeError(w, http.StatusUnauthorized, "bearer token required")
			return
		}
		if _, err := s.engine.Tokens.Verify(raw); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.engine.DB.Ping() == nil

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": version.Version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
	})
}
