package server

import (
	"net/http"

	"postwall/internal/domain"
	"postwall/internal/store"
)

type topicRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	IsPublic *bool  `json:"isPublic"`
}

type topicUpdateRequest struct {
	Name     *string `json:"name"`
	Slug     *string `json:"slug"`
	IsPublic *bool   `json:"isPublic"`
}

type topicLinksRequest struct {
	Relations []domain.TopicLink `json:"relations"`
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if !decodeBody(w, r, &req) {
		return
	}
	topic := domain.Topic{Name: req.Name, Slug: req.Slug}
	if req.IsPublic != nil {
		topic.IsPublic = *req.IsPublic
	}
	created, err := s.app.CreateTopic(r.Context(), topic)
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}
	view, err := s.app.TopicByID(r.Context(), id)
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetTopicBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "invalid topic slug")
		return
	}
	view, err := s.app.TopicBySlug(r.Context(), slug)
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.app.Topics(r.Context(), s.elevated(r))
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (s *Server) handleUpdateTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}
	var req topicUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	updated, err := s.app.UpdateTopic(r.Context(), id, store.TopicUpdate{
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

func (s *Server) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}
	if err := s.app.DeleteTopic(r.Context(), id); err != nil {
		s.handleAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceTopicLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}
	var req topicLinksRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := s.app.ReplaceTopicLinks(r.Context(), id, req.Relations)
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
