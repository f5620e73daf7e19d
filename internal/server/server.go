// Package server exposes the file-conversion HTTP façade: upload, download,
// removal, listing and conversion of documents.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lehakshiv/lehakshiv/internal/convert"
	"github.com/lehakshiv/lehakshiv/internal/extract"
	"github.com/lehakshiv/lehakshiv/internal/jobstore"
	"github.com/lehakshiv/lehakshiv/internal/store"
)

// statusResponse is the envelope the façade answers with for every
// non-payload operation.
type statusResponse struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

type convertResponse struct {
	JobID    string `json:"job_id"`
	Artifact string `json:"artifact"`
	Severity string `json:"severity"`
}

type jobResponse struct {
	JobID    string `json:"job_id"`
	Source   string `json:"source"`
	Artifact string `json:"artifact"`
	State    string `json:"state"`
	Chunks   int    `json:"chunks"`
	Error    string `json:"error,omitempty"`
}

// Server wires the HTTP handlers to the file store and conversion manager.
type Server struct {
	files     *store.Store
	manager   *convert.Manager
	logger    *slog.Logger
	maxUpload int64
}

func New(files *store.Store, manager *convert.Manager, maxUploadMB int, logger *slog.Logger) *Server {
	return &Server{
		files:     files,
		manager:   manager,
		logger:    logger.With(slog.String("component", "http")),
		maxUpload: int64(maxUploadMB) << 20,
	}
}

// Register installs the façade routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /upload/", s.handleUpload)
	mux.HandleFunc("GET /download/{filename}", s.handleDownload)
	mux.HandleFunc("GET /remove/{filename}", s.handleRemove)
	mux.HandleFunc("GET /lsdir/", s.handleList)
	mux.HandleFunc("GET /convert/{filename}", s.handleConvert)
	mux.HandleFunc("GET /status/{job}", s.handleStatus)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<h1 style='color:blue'>lehakshiv backend</h1>")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respond(w, http.StatusBadRequest, statusResponse{
			Message:  fmt.Sprintf("missing file field: %v", err),
			Severity: "ERROR",
		})
		return
	}
	defer file.Close()

	if err := s.files.SaveUpload(header.Filename, file); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.logger.Info("upload stored", slog.String("file", header.Filename), slog.Int64("size", header.Size))
	s.respond(w, http.StatusOK, statusResponse{Message: "upload ok", Severity: "INFO"})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	path, err := s.files.ArtifactPath(name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if err := s.files.Remove(name); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, statusResponse{
		Message:  fmt.Sprintf("file %s removed.", name),
		Severity: "INFO",
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.files.ListConverted()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, entries)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	job, err := s.manager.Submit(r.Context(), name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusAccepted, convertResponse{
		JobID:    job.ID,
		Artifact: job.Artifact,
		Severity: "INFO",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.manager.Status(r.Context(), r.PathValue("job"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, jobResponse{
		JobID:    job.ID,
		Source:   job.Source,
		Artifact: job.Artifact,
		State:    job.State,
		Chunks:   job.Chunks,
		Error:    job.Error,
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

// respondError maps the error taxonomy onto HTTP statuses: missing files and
// jobs are 404, unconvertible input is 400, everything else is a generic 500.
// Partial or corrupt artifacts are never served.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, jobstore.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, extract.ErrUnsupportedFormat), errors.Is(err, extract.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	s.logger.Warn("request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	s.respond(w, status, statusResponse{Message: err.Error(), Severity: "ERROR"})
}
