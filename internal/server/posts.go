package server

import (
	"context"
	"net/http"
	"time"

	"postwall/internal/app"
	"postwall/internal/domain"
	"postwall/internal/store"
)

type createPostRequest struct {
	Content  string `json:"content"`
	IsPublic *bool  `json:"isPublic"`
	UserID   uint   `json:"userId"`
}

type updatePostRequest struct {
	Content  *string `json:"content"`
	IsPublic *bool   `json:"isPublic"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	post := domain.Post{Content: req.Content, IsPublic: true, UserID: req.UserID}
	if req.IsPublic != nil {
		post.IsPublic = *req.IsPublic
	}
	created, err := s.app.CreatePost(r.Context(), post)
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	view, err := s.app.PostByID(r.Context(), id)
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	var req updatePostRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := s.app.UpdatePost(r.Context(), id, store.PostUpdate{Content: req.Content, IsPublic: req.IsPublic})
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	if err := s.app.DeletePost(r.Context(), id); err != nil {
		s.handleAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWall(w http.ResponseWriter, r *http.Request) {
	q := app.WallQuery{
		Limit:         queryLimit(r),
		Offset:        queryInt(r, "offset", 0),
		IncludeHidden: s.elevated(r),
	}
	if dayParam := r.URL.Query().Get("day"); dayParam != "" {
		day, err := time.Parse("2006-01-02", dayParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
			return
		}
		q.Day = &day
	}
	page, err := s.app.WallPage(r.Context(), q)
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handlePostsByTag(w http.ResponseWriter, r *http.Request) {
	kind := domain.TagKind(r.PathValue("kind"))
	if !domain.ValidKind(kind) {
		writeError(w, http.StatusBadRequest, "unknown tag kind")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid tag id")
		return
	}
	page, err := s.app.PostsByTag(r.Context(), kind, id,
		queryLimit(r), queryInt(r, "offset", 0), s.elevated(r))
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handlePostsByTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}
	page, err := s.app.PostsByTopic(r.Context(), id,
		queryLimit(r), queryInt(r, "offset", 0), s.elevated(r))
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	dates, err := s.app.Calendar(r.Context(), s.elevated(r))
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

func (s *Server) handleAssignTag(w http.ResponseWriter, r *http.Request) {
	s.handleRelation(w, r, s.app.AssignTag)
}

func (s *Server) handleReassignTag(w http.ResponseWriter, r *http.Request) {
	s.handleRelation(w, r, s.app.ReassignTag)
}

func (s *Server) handleRelation(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, kind domain.TagKind, postID, tagID uint) error) {
	postID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	tagID, ok := pathID(r, "tagID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid tag id")
		return
	}
	kind := domain.TagKind(r.PathValue("kind"))
	if err := op(r.Context(), kind, postID, tagID); err != nil {
		s.handleAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnassignTags(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	kind := domain.TagKind(r.PathValue("kind"))
	if err := s.app.UnassignTags(r.Context(), kind, postID); err != nil {
		s.handleAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
