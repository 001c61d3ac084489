// Package session implements the per-session document pipeline: lifecycle
// tracking from upload through background processing to answering questions.
package session

import (
	"sync"

	"docchat/internal/pipeline"
)

// Status values of the per-upload state machine. Transitions are
// one-directional per upload attempt; a new upload re-enters StatusUploaded
// and discards prior pipeline state.
const (
	StatusNone       = "none"
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Session tracks one identifier's document-processing state. The pipeline
// handle is non-nil exactly when the status is completed; it is swapped in
// atomically only after a build fully succeeds.
type Session struct {
	mu       sync.RWMutex
	status   string
	filename string
	err      string
	pipeline *pipeline.Pipeline
}

func newSession() *Session {
	return &Session{status: StatusNone}
}

// Snapshot is a consistent read of the externally visible session state.
type Snapshot struct {
	Status   string
	Filename string
	Err      string
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Status: s.status, Filename: s.filename, Err: s.err}
}

// Pipeline returns the bound retrieval pipeline, or nil unless completed.
func (s *Session) Pipeline() *pipeline.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline
}

// accept restarts the state machine for a new upload, discarding any prior
// pipeline.
func (s *Session) accept(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusUploaded
	s.filename = filename
	s.err = ""
	s.pipeline = nil
}

func (s *Session) processing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusProcessing
}

func (s *Session) complete(p *pipeline.Pipeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusCompleted
	s.err = ""
	s.pipeline = p
}

func (s *Session) fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusError
	s.err = message
	s.pipeline = nil
}
