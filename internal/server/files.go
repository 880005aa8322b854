package server

import (
	"net/http"

	"postwall/internal/app"
	"postwall/internal/util"
)

func (s *Server) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files in request")
		return
	}

	uploads := make([]app.FileUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file part")
			return
		}
		defer f.Close()
		uploads = append(uploads, app.FileUpload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Reader:      f,
		})
	}

	views, err := s.app.UploadPostFiles(r.Context(), postID, uploads)
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	util.LoggerFromContext(r.Context()).Info("files uploaded", "post", postID, "count", len(views))
	writeJSON(w, http.StatusCreated, views)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	views, err := s.app.FilesForPost(r.Context(), postID)
	if err != nil {
		s.handleAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}
	if err := s.app.DeleteFile(r.Context(), fileID); err != nil {
		s.handleAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []uint `json:"ids"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.app.DeleteFiles(r.Context(), req.IDs); err != nil {
		s.handleAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePostFiles(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	if err := s.app.DeleteFilesForPost(r.Context(), postID); err != nil {
		s.handleAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
