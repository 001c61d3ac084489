package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
	"docchat/internal/session"
	"docchat/internal/vectorstore/memory"
)

type stubEmbedder struct{}

func (stubEmbedder) Name() string   { return "stub" }
func (stubEmbedder) Dimension() int { return 2 }
func (stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{1, 0}, nil
}

type stubChunker struct{}

func (stubChunker) Chunk(ctx context.Context, d domain.Document) ([]domain.Chunk, error) {
	return []domain.Chunk{{DocumentID: d.ID, ChunkID: d.ID + ":0", Text: d.Content, Source: d.Path, Page: d.Page}}, nil
}

type stubGenerator struct {
	healthy bool
	answer  string
	err     error
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return s.answer, s.err
}
func (s *stubGenerator) Healthy(ctx context.Context) bool { return s.healthy }

func newTestServer(gen *stubGenerator) *Server {
	mgr := session.NewManager(session.Options{
		Sessions:  session.NewStore(time.Hour, time.Hour),
		Embedder:  stubEmbedder{},
		Chunker:   stubChunker{},
		Generator: gen,
		NewStore: func(string) (domain.VectorStore, error) {
			return memory.NewStore(), nil
		},
		Load: func(path string) ([]domain.Document, error) {
			return []domain.Document{{ID: "doc", Path: path, Page: 1, Content: "Page text."}}, nil
		},
	})
	return NewServer(":0", mgr, nil, false)
}

func multipartUpload(t *testing.T, url, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestRootEndpoint(t *testing.T) {
	srv := newTestServer(&stubGenerator{healthy: true})
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "docchat API is running", decodeJSON(t, w)["message"])
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(&stubGenerator{healthy: true})
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeJSON(t, w)["ollama_running"])

	srv = newTestServer(&stubGenerator{healthy: false})
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, false, decodeJSON(t, w)["ollama_running"])
}

func TestUploadRequiresSessionID(t *testing.T) {
	srv := newTestServer(&stubGenerator{healthy: true})
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, multipartUpload(t, "/upload", "doc.pdf"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeJSON(t, w)["error"], "session ID")
}

func TestUploadRejectsNonPDF(t *testing.T) {
	srv := newTestServer(&stubGenerator{healthy: true})
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, multipartUpload(t, "/upload?session_id=s1", "notes.txt"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeJSON(t, w)["error"], "PDF")

	// nothing was scheduled: the session is still untouched
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/document/status/s1", nil))
	assert.Equal(t, session.StatusNone, decodeJSON(t, w)["status"])
}

func TestDocumentStatusUnknownSession(t *testing.T) {
	srv := newTestServer(&stubGenerator{healthy: true})
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/document/status/fresh", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "fresh", body["session_id"])
	assert.Equal(t, session.StatusNone, body["status"])

	// filename and error are always present so pollers see a stable shape
	require.Contains(t, body, "filename")
	require.Contains(t, body, "error")
	assert.Equal(t, "", body["filename"])
	assert.Equal(t, "", body["error"])
}

func TestQuestionBeforeUploadFails(t *testing.T) {
	srv := newTestServer(&stubGenerator{healthy: true})
	payload := `{"question": "q?", "session_id": "s1"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/question", bytes.NewBufferString(payload))
	srv.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeJSON(t, w)["error"], "not ready")
}

func TestUploadThenQuestionFlow(t *testing.T) {
	srv := newTestServer(&stubGenerator{healthy: true, answer: "reasoning\n\nFinal Answer: blue"})

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, multipartUpload(t, "/upload?session_id=s1", "doc.pdf"))
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "s1", body["session_id"])
	assert.Equal(t, "processing", body["status"])

	// the build runs in the background; poll until it lands
	deadline := time.Now().Add(5 * time.Second)
	for {
		w = httptest.NewRecorder()
		srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/document/status/s1", nil))
		status := decodeJSON(t, w)["status"]
		if status == session.StatusCompleted {
			break
		}
		if status == session.StatusError || time.Now().After(deadline) {
			t.Fatalf("build did not complete, status=%v", status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	payload := `{"question": "what color?", "session_id": "s1", "include_reasoning": true}`
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/question", bytes.NewBufferString(payload)))
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeJSON(t, w)
	assert.Equal(t, "Final Answer: blue", body["answer"])
	assert.Equal(t, "reasoning", body["thinking"])
}

func TestQuestionGenerationFailure(t *testing.T) {
	gen := &stubGenerator{healthy: true, answer: "ok"}
	srv := newTestServer(gen)

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, multipartUpload(t, "/upload?session_id=s1", "doc.pdf"))
	require.Equal(t, http.StatusOK, w.Code)

	deadline := time.Now().Add(5 * time.Second)
	for {
		w = httptest.NewRecorder()
		srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/document/status/s1", nil))
		if decodeJSON(t, w)["status"] == session.StatusCompleted {
			break
		}
		require.False(t, time.Now().After(deadline), "build did not complete")
		time.Sleep(10 * time.Millisecond)
	}

	gen.err = errors.New("model crashed")
	payload := `{"question": "q?", "session_id": "s1"}`
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/question", bytes.NewBufferString(payload)))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	// the session stays usable
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/document/status/s1", nil))
	assert.Equal(t, session.StatusCompleted, decodeJSON(t, w)["status"])
}

func TestQuestionInvalidJSON(t *testing.T) {
	srv := newTestServer(&stubGenerator{healthy: true})
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/question", bytes.NewBufferString("{not json")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
