package server

import (
	"net/http"

	"postwall/internal/domain"
	"postwall/internal/store"
)

type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type userUpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, &req) {
		return
	}
	created, err := s.app.CreateUser(r.Context(), domain.User{Name: req.Name, Email: req.Email})
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := s.app.UserByID(r.Context(), id)
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req userUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	updated, err := s.app.UpdateUser(r.Context(), id, store.UserUpdate{Name: req.Name, Email: req.Email})
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := s.app.DeleteUser(r.Context(), id); err != nil {
		s.handleAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
