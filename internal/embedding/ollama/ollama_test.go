package ollama

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedNormalizesAndSetsDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		var body struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nomic-embed-text", body.Model)
		json.NewEncoder(w).Encode(map[string][]float64{"embedding": {3, 4}})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	assert.Equal(t, 0, c.Dimension())

	vec, err := c.Embed(context.Background(), "some text")
	require.NoError(t, err)
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-9)
	assert.InDelta(t, 0.8, vec[1], 1e-9)

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
	assert.Equal(t, 2, c.Dimension())
}

func TestEmbedClientErrorIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, 1, calls)
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "busy", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string][]float64{"embedding": {1}})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	vec, err := c.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, vec, 1)
	assert.Equal(t, 3, calls)
}

func TestEmbedConcurrentSharedClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]float64{"embedding": {3, 4}})
	}))
	defer srv.Close()

	// one client instance serves every session's build concurrently; the
	// lazy dimension must not race with readers
	c := NewClient(Config{BaseURL: srv.URL})
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Embed(context.Background(), "text")
			_ = c.Dimension()
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 2, c.Dimension())
}

func TestEmbedEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]float64{"embedding": {}})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding")
}
