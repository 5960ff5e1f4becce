package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tonimelisma/drivegate/internal/drive"
)

// uploadField is the multipart form field carrying file content.
const uploadField = "file"

// deletedResponse is returned by the delete routes. The status field is 410
// while the HTTP status is 200; existing clients key off the body.
type deletedResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleGreeting(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "drivegate",
		"version": s.opts.Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) files(r *http.Request) *drive.Files {
	return drive.NewFiles(sessionFrom(r.Context()), s.slots)
}

func (s *Server) folders(r *http.Request) *drive.Folders {
	return drive.NewFolders(sessionFrom(r.Context()))
}

// pageSize reads ?page_size, defaulting to the configured size.
func (s *Server) pageSize(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page_size")
	if raw == "" {
		return s.opts.PageSize, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, BadRequest("page_size must be a positive integer")
	}

	return n, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, s.logger, err)
}

// Files.

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	size, err := s.pageSize(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	files, err := s.files(r).List(r.Context(), size)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	file, err := s.files(r).Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.files(r).Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deletedResponse{
		Status:  http.StatusGone,
		Message: fmt.Sprintf("file of id '%s' successfully deleted", id),
	})
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	file, err := s.files(r).Update(r.Context(), chi.URLParam(r, "id"), q.Get("name"), q.Get("new_parent_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

func (s *Server) handleCreateEmptyFile(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		s.fail(w, r, BadRequest("name is required"))
		return
	}

	file, err := s.files(r).CreateEmpty(r.Context(), name, drive.MimeTypeFor(name), q.Get("parent_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	part, err := s.uploadPart(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer part.Close()

	name := part.FileName()

	file, err := s.files(r).Upload(r.Context(), name, part, partMimeType(part), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, uploadErr(err))
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

func (s *Server) handleReplaceContent(w http.ResponseWriter, r *http.Request) {
	part, err := s.uploadPart(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer part.Close()

	file, err := s.files(r).ReplaceContent(r.Context(), chi.URLParam(r, "id"), part, partMimeType(part))
	if err != nil {
		s.fail(w, r, uploadErr(err))
		return
	}

	writeJSON(w, http.StatusOK, file)
}

// uploadPart streams the request body and returns the "file" part without
// buffering it. The body is capped at MaxUploadSize.
func (s *Server) uploadPart(w http.ResponseWriter, r *http.Request) (*multipart.Part, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, BadRequest("expected a multipart/form-data body")
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, BadRequest(fmt.Sprintf("multipart field %q is required", uploadField))
		}

		if err != nil {
			return nil, uploadErr(err)
		}

		if part.FormName() == uploadField && part.FileName() != "" {
			return part, nil
		}

		part.Close()
	}
}

// partMimeType uses the part's declared type; a part without one falls
// back to the name's extension.
func partMimeType(part *multipart.Part) string {
	if ct := part.Header.Get("Content-Type"); ct != "" {
		return ct
	}

	return drive.MimeTypeFor(part.FileName())
}

// uploadErr reports an oversized body as 413; other errors pass through.
func uploadErr(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return &APIError{
			Status:  http.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit),
		}
	}

	return err
}

// Folders.

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	size, err := s.pageSize(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	folders, err := s.folders(r).List(r.Context(), size)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) handleRootFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := s.folders(r).Root(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := s.folders(r).Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

func (s *Server) handleListFolderFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.folders(r).ListFiles(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.folders(r).Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deletedResponse{
		Status:  http.StatusGone,
		Message: fmt.Sprintf("folder of id '%s' successfully deleted", id),
	})
}

func (s *Server) handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	folder, err := s.folders(r).Update(r.Context(), chi.URLParam(r, "id"), q.Get("name"), q.Get("new_parent_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, folder)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		s.fail(w, r, BadRequest("name is required"))
		return
	}

	folder, err := s.folders(r).CreateFolder(r.Context(), name, q.Get("parent_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}
