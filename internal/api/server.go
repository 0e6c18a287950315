// Package api exposes the catalog over HTTP with chi.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mesh-intelligence/queryshelf/internal/catalog"
	"github.com/mesh-intelligence/queryshelf/internal/logging"
	"github.com/mesh-intelligence/queryshelf/internal/permissions"
	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

// Server routes HTTP requests to the catalog facade.
type Server struct {
	router  chi.Router
	catalog *catalog.Service
	checker permissions.Checker
}

// NewServer builds the router. checker guards save and delete.
func NewServer(svc *catalog.Service, checker permissions.Checker) *Server {
	s := &Server{router: chi.NewRouter(), catalog: svc, checker: checker}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// NewHTTPServer wraps the handler in an http.Server listening on addr.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) routes() {
	s.router.Use(requestID, logRequests, middleware.Recoverer, identifyActor)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Get("/", s.handleIndex)
	s.router.Post("/save-query", s.handleSave)

	s.router.Route("/{database}", func(r chi.Router) {
		r.Get("/", s.handleDatabase)
		r.Post("/suggest-title-and-description", s.handleSuggest)
		r.Post("/delete-query", s.handleDelete)
		r.Get("/{slug}", s.handleExecute)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps err onto a status and a body that never carries storage
// detail or query text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	logger := logging.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("api: request failed", "status", status, "path", r.URL.Path, "error", err)
	} else {
		logger.Warn("api: request failed", "status", status, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func classify(err error) (int, string) {
	var fe *types.FieldError
	switch {
	case errors.As(err, &fe):
		return http.StatusBadRequest, fe.Error()
	case errors.Is(err, types.ErrNoStructuredOutput):
		return http.StatusBadRequest, "No JSON data found in completion"
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, types.ErrPermission):
		return http.StatusForbidden, "Permission denied"
	case errors.Is(err, types.ErrUnavailable):
		return http.StatusServiceUnavailable, "suggestions are not available"
	case errors.Is(err, types.ErrCatalogDetached):
		return http.StatusServiceUnavailable, "catalog is not available"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	}
	return http.StatusInternalServerError, "internal error"
}
