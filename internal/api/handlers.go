package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"docchat/internal/domain"
	"docchat/internal/loader"
)

const maxUploadBytes = 64 << 20

type uploadResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// statusResponse always carries filename and error so pollers see a stable
// shape across every session state.
type statusResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Filename  string `json:"filename"`
	Error     string `json:"error"`
}

type questionRequest struct {
	Question         string `json:"question"`
	SessionID        string `json:"session_id"`
	IncludeReasoning bool   `json:"include_reasoning"`
}

type questionResponse struct {
	Answer   string `json:"answer"`
	Thinking string `json:"thinking,omitempty"`
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "docchat API is running"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ollama_running": s.mgr.Healthy(r.Context())})
}

// upload accepts a PDF and schedules the background pipeline build. Both
// validation failures reply 400 before any task is scheduled.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session ID is required", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file field is required", err)
		return
	}
	defer file.Close()

	if !loader.IsPDF(header.Filename) {
		s.writeError(w, http.StatusBadRequest, "only PDF files are supported", nil)
		return
	}

	tmp, err := os.CreateTemp("", "docchat-*.pdf")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to store upload", err)
		return
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		s.writeError(w, http.StatusInternalServerError, "failed to store upload", err)
		return
	}
	tmp.Close()

	s.mgr.Begin(sessionID, header.Filename)
	go func(path, filename string) {
		defer os.Remove(path)
		s.mgr.Build(context.Background(), sessionID, path, filename)
	}(tmp.Name(), header.Filename)

	writeJSON(w, http.StatusOK, uploadResponse{
		SessionID: sessionID,
		Status:    "processing",
		Message:   fmt.Sprintf("Document '%s' uploaded and is being processed", header.Filename),
	})
}

func (s *Server) documentStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	snap := s.mgr.Status(sessionID)
	writeJSON(w, http.StatusOK, statusResponse{
		SessionID: sessionID,
		Status:    snap.Status,
		Filename:  snap.Filename,
		Error:     snap.Err,
	})
}

func (s *Server) question(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session ID is required", nil)
		return
	}

	res, err := s.mgr.Answer(r.Context(), req.SessionID, req.Question, req.IncludeReasoning)
	if err != nil {
		var notReady *domain.NotReadyError
		switch {
		case errors.As(err, &notReady):
			s.writeError(w, http.StatusBadRequest, notReady.Error(), nil)
		case errors.Is(err, domain.ErrMissingQuestion):
			s.writeError(w, http.StatusBadRequest, err.Error(), nil)
		default:
			s.writeError(w, http.StatusInternalServerError, "error processing question", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, questionResponse{Answer: res.Answer, Thinking: res.Thinking})
}
