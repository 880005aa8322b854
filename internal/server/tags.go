package server

import (
	"fmt"
	"net/http"

	"postwall/internal/domain"
	"postwall/internal/store"
)

// kindPlural names the URL segment for a tag kind's collection routes.
func kindPlural(kind domain.TagKind) string {
	switch kind {
	case domain.KindCategory:
		return "categories"
	case domain.KindCollection:
		return "collections"
	default:
		return "communities"
	}
}

func (s *Server) registerTagRoutes(kind domain.TagKind) {
	plural := kindPlural(kind)
	s.mux.Handle(fmt.Sprintf("POST /%s", plural), s.authenticated(s.handleCreateTag(kind)))
	s.mux.HandleFunc(fmt.Sprintf("GET /%s", plural), s.handleListTags(kind))
	s.mux.HandleFunc(fmt.Sprintf("GET /%s/{id}", plural), s.handleGetTag(kind))
	s.mux.HandleFunc(fmt.Sprintf("GET /users/{id}/%s", plural), s.handleTagsByOwner(kind))
	s.mux.Handle(fmt.Sprintf("PATCH /%s/{id}", plural), s.authenticated(s.handleUpdateTag(kind)))
	s.mux.Handle(fmt.Sprintf("DELETE /%s/{id}", plural), s.authenticated(s.handleDeleteTag(kind)))
}

type tagRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	IsPublic *bool  `json:"isPublic"`
	UserID   uint   `json:"userId"`
}

type tagUpdateRequest struct {
	Name     *string `json:"name"`
	Slug     *string `json:"slug"`
	IsPublic *bool   `json:"isPublic"`
}

func (s *Server) handleCreateTag(kind domain.TagKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tagRequest
		if !decodeBody(w, r, &req) {
			return
		}
		tag := domain.Tag{Name: req.Name, Slug: req.Slug, UserID: req.UserID}
		if req.IsPublic != nil {
			tag.IsPublic = *req.IsPublic
		}
		created, err := s.app.CreateTag(r.Context(), kind, tag)
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func (s *Server) handleGetTag(kind domain.TagKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		tag, err := s.app.TagByID(r.Context(), kind, id)
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tag)
	}
}

func (s *Server) handleListTags(kind domain.TagKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags, err := s.app.Tags(r.Context(), kind, s.elevated(r))
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tags)
	}
}

func (s *Server) handleTagsByOwner(kind domain.TagKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		tags, err := s.app.TagsByOwner(r.Context(), kind, userID)
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tags)
	}
}

func (s *Server) handleUpdateTag(kind domain.TagKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		var req tagUpdateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		updated, err := s.app.UpdateTag(r.Context(), kind, id, store.TagUpdate{
			Name:     req.Name,
			Slug:     req.Slug,
			IsPublic: req.IsPublic,
		})
		if err != nil {
			s.handleAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) handleDeleteTag(kind domain.TagKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		if err := s.app.DeleteTag(r.Context(), kind, id); err != nil {
			s.handleAppError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
