// Package server exposes the HTTP API. Handlers stay thin: decode, call the
// service layer, map errors to status codes.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"postwall/internal/app"
	"postwall/internal/authtoken"
	"postwall/internal/domain"
	"postwall/internal/util"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App      *app.App
	Verifier *authtoken.Verifier
	// CookieName is the auth cookie carrying the identity provider's JWT.
	CookieName string
	// MaxUploadBytes caps multipart upload memory.
	MaxUploadBytes int64
	// CORSOrigin enables CORS when non-empty.
	CORSOrigin string
}

// Server exposes HTTP endpoints for the post wall service.
type Server struct {
	app            *app.App
	verifier       *authtoken.Verifier
	cookieName     string
	maxUploadBytes int64
	corsOrigin     string
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "auth_token"
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	s := &Server{
		app:            cfg.App,
		verifier:       cfg.Verifier,
		cookieName:     cookieName,
		maxUploadBytes: maxUpload,
		corsOrigin:     cfg.CORSOrigin,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = util.WithRequestLog(h)
	h = util.WithRequestID(h)
	if s.corsOrigin != "" {
		h = util.WithCORS(s.corsOrigin, h)
	}
	h = util.WithSecurityHeaders(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// posts
	s.mux.Handle("POST /posts", s.authenticated(s.handleCreatePost))
	s.mux.HandleFunc("GET /posts", s.handleWall)
	s.mux.HandleFunc("GET /posts/calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /posts/{id}", s.handleGetPost)
	s.mux.Handle("PATCH /posts/{id}", s.authenticated(s.handleUpdatePost))
	s.mux.Handle("DELETE /posts/{id}", s.authenticated(s.handleDeletePost))
	s.mux.HandleFunc("GET /posts/topic/{id}", s.handlePostsByTopic)
	s.mux.HandleFunc("GET /posts/{kind}/{id}", s.handlePostsByTag)

	// post-tag relations
	s.mux.Handle("POST /posts/{id}/{kind}/{tagID}", s.authenticated(s.handleAssignTag))
	s.mux.Handle("PUT /posts/{id}/{kind}/{tagID}", s.authenticated(s.handleReassignTag))
	s.mux.Handle("DELETE /posts/{id}/{kind}", s.authenticated(s.handleUnassignTags))

	// post files
	s.mux.Handle("POST /posts/{id}/files", s.authenticated(s.handleUploadFiles))
	s.mux.HandleFunc("GET /posts/{id}/files", s.handleListFiles)
	s.mux.Handle("DELETE /posts/{id}/files", s.authenticated(s.handleDeletePostFiles))
	s.mux.Handle("DELETE /files/{id}", s.authenticated(s.handleDeleteFile))
	s.mux.Handle("DELETE /files", s.authenticated(s.handleDeleteFiles))

	// users
	s.mux.Handle("POST /users", s.authenticated(s.handleCreateUser))
	s.mux.HandleFunc("GET /users/{id}", s.handleGetUser)
	s.mux.Handle("PATCH /users/{id}", s.authenticated(s.handleUpdateUser))
	s.mux.Handle("DELETE /users/{id}", s.authenticated(s.handleDeleteUser))

	// categories, collections, communities
	for _, kind := range domain.Kinds {
		s.registerTagRoutes(kind)
	}

	// topics
	s.mux.Handle("POST /topics", s.authenticated(s.handleCreateTopic))
	s.mux.HandleFunc("GET /topics", s.handleListTopics)
	s.mux.HandleFunc("GET /topics/{id}", s.handleGetTopic)
	s.mux.HandleFunc("GET /topics/slug/{slug}", s.handleGetTopicBySlug)
	s.mux.Handle("PATCH /topics/{id}", s.authenticated(s.handleUpdateTopic))
	s.mux.Handle("DELETE /topics/{id}", s.authenticated(s.handleDeleteTopic))
	s.mux.Handle("PUT /topics/{id}/relations", s.authenticated(s.handleReplaceTopicLinks))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authorized reports whether the request carries a valid auth cookie.
func (s *Server) authorized(r *http.Request) bool {
	if s.verifier == nil {
		return false
	}
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	if _, err := s.verifier.Verify(cookie.Value); err != nil {
		util.LoggerFromContext(r.Context()).Debug("auth token rejected", "error", err)
		return false
	}
	return true
}

// elevated resolves hasElevatedAccess for read queries: the caller must ask
// for hidden sources AND present a valid token. An invalid token downgrades
// silently instead of failing the request.
func (s *Server) elevated(r *http.Request) bool {
	if r.URL.Query().Get("includeHiddenSources") != "true" {
		return false
	}
	return s.authorized(r)
}

// authenticated guards mutating routes behind a valid auth cookie.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	})
}

// handleAppError maps service error categories onto status codes.
func (s *Server) handleAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request, name string) (uint, bool) {
	n, err := strconv.ParseUint(r.PathValue(name), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// queryLimit reads the page size, never letting a caller disable the bound:
// zero, negative or absent falls back to the default, oversized is capped.
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		return defaultPageSize
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return n
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
