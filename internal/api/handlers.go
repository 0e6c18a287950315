package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/mesh-intelligence/queryshelf/internal/catalog"
	"github.com/mesh-intelligence/queryshelf/internal/logging"
	"github.com/mesh-intelligence/queryshelf/internal/slugs"
	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

const saveFieldsRequired = "sql and database and url parameters required"

func databasePath(database string) string {
	return "/" + url.PathEscape(database)
}

func queryPath(database, slug string) string {
	return databasePath(database) + "/" + url.PathEscape(slug)
}

// allowed writes 403 and returns false when the actor may not change the
// catalog.
func (s *Server) allowed(w http.ResponseWriter, r *http.Request) bool {
	if err := s.checker.Allow(r.Context(), ActorFrom(r.Context())); err != nil {
		logging.Logger().Warn("api: permission denied", "path", r.URL.Path, "error", err)
		http.Error(w, "Permission denied", http.StatusForbidden)
		return false
	}
	return true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"databases": s.catalog.Databases(),
		"messages":  takeMessages(w, r),
	})
}

// handleDatabase lists the tables and saved queries of a database.
func (s *Server) handleDatabase(w http.ResponseWriter, r *http.Request) {
	database := chi.URLParam(r, "database")
	tables, err := s.catalog.Tables(r.Context(), database)
	if err != nil {
		writeError(w, r, err)
		return
	}
	queries, err := s.catalog.CannedQueries(r.Context(), database)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"database": database,
		"tables":   tables,
		"queries":  queries,
		"messages": takeMessages(w, r),
	})
}

// handleExecute runs a saved query. A ".json" suffix on the slug is
// accepted and ignored.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	database := chi.URLParam(r, "database")
	slug := strings.TrimSuffix(chi.URLParam(r, "slug"), ".json")

	_, rows, err := s.catalog.Execute(r.Context(), database, slug)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	database := chi.URLParam(r, "database")
	if err := r.ParseForm(); err != nil {
		writeError(w, r, &types.FieldError{Field: "form", Reason: "is malformed"})
		return
	}
	if !r.PostForm.Has("sql") {
		writeError(w, r, &types.FieldError{Field: "sql", Reason: "parameter required"})
		return
	}

	sg, err := s.catalog.Suggest(r.Context(), database, r.PostForm.Get("sql"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sg)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if !s.allowed(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectWith(w, r, "/", LevelError, saveFieldsRequired)
		return
	}
	form := r.PostForm
	req := catalog.SaveRequest{
		Database:    strings.TrimSpace(form.Get("database")),
		SQL:         form.Get("sql"),
		Slug:        strings.TrimSpace(form.Get("url")),
		Title:       form.Get("title"),
		Description: form.Get("description"),
		Actor:       ActorFrom(r.Context()),
	}

	saved, err := s.catalog.Save(r.Context(), req)
	var fe *types.FieldError
	switch {
	case err == nil:
		redirectWith(w, r, queryPath(saved.Database, saved.Slug), LevelInfo, "Query saved as "+saved.Slug)
	case errors.As(err, &fe) && fe.Field != "slug":
		redirectWith(w, r, "/", LevelError, saveFieldsRequired)
	case errors.As(err, &fe):
		redirectWith(w, r, "/", LevelError, "url "+fe.Reason)
	case errors.Is(err, types.ErrNotFound):
		redirectWith(w, r, "/", LevelError, "Database not found")
	case errors.Is(err, types.ErrConflict):
		slug := req.Slug
		if slug == "" {
			slug = slugs.FromTitle(req.Title)
		}
		redirectWith(w, r, databasePath(req.Database), LevelError,
			fmt.Sprintf("A query called %q already exists in %s, choose another URL", slug, req.Database))
	default:
		writeError(w, r, err)
	}
}

// deleteBody is the JSON payload of a delete request.
type deleteBody struct {
	QueryName *string `json:"query_name"`
	DBName    *string `json:"db_name"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.allowed(w, r) {
		return
	}
	var body deleteBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if body.QueryName == nil || body.DBName == nil || *body.QueryName == "" || *body.DBName == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if err := s.catalog.Delete(r.Context(), *body.DBName, *body.QueryName); err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, databasePath(*body.DBName)+"/", http.StatusFound)
}
