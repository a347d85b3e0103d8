package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/digkill/vidcrafter/internal/storage"
)

type fileInfo struct {
	storage.Object
	URL         string `json:"url"`
	DownloadURL string `json:"downloadUrl"`
}

func describe(obj storage.Object) fileInfo {
	return fileInfo{
		Object: obj,
		URL:    fmt.Sprintf("/api/files/%s/%s", obj.Type, url.PathEscape(obj.Filename)),
		DownloadURL: fmt.Sprintf("/api/download/file?file=%s&type=%s",
			url.QueryEscape(obj.Filename), obj.Type),
	}
}

func fileTypeParam(value string) storage.FileType {
	if value == "" {
		return storage.FileTypeVideo
	}
	return storage.FileType(value)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.badRequest(w, "File too large. Maximum size is 100MB")
			return
		}
		s.badRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.badRequest(w, "No file provided")
		return
	}
	defer file.Close()

	fileType := fileTypeParam(r.FormValue("type"))
	if !fileType.Valid() {
		s.badRequest(w, "Invalid file type")
		return
	}
	if header.Size > storage.MaxUploadSize {
		s.badRequest(w, "File too large. Maximum size is 100MB")
		return
	}

	name := storage.StoredName(header.Filename, time.Now())
	obj, err := s.deps.Store.Put(r.Context(), fileType, name, file, header.Size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	info := describe(*obj)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"filename":     obj.Filename,
		"originalName": header.Filename,
		"size":         obj.Size,
		"type":         obj.ContentType,
		"fileType":     obj.Type,
		"url":          info.URL,
		"downloadUrl":  info.DownloadURL,
		"uploadedAt":   obj.ModifiedAt,
	})
}

func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	s.streamFile(w, r, storage.FileType(chi.URLParam(r, "type")), chi.URLParam(r, "filename"), false)
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	if name == "" {
		s.badRequest(w, "File parameter is required")
		return
	}
	s.streamFile(w, r, fileTypeParam(r.URL.Query().Get("type")), name, true)
}

func (s *Server) streamFile(w http.ResponseWriter, r *http.Request, fileType storage.FileType, name string, attachment bool) {
	if err := storage.Validate(fileType, name); err != nil {
		s.writeError(w, r, err)
		return
	}
	obj, body, err := s.deps.Store.Get(r.Context(), fileType, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", obj.Filename))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		s.log.Warn("stream file", "file_type", fileType, "filename", name, "err", err)
	}
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	fileType := fileTypeParam(r.URL.Query().Get("type"))
	objects, err := s.deps.Store.List(r.Context(), fileType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	files := make([]fileInfo, 0, len(objects))
	for _, obj := range objects {
		files = append(files, describe(obj))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"files": files})
}
