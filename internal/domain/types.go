package domain

import "context"

// Document represents the text of a single PDF page loaded into the system.
type Document struct {
	ID      string
	Path    string
	Page    int
	Content string
}

// Chunk is a semantically coherent span of a document used for indexing.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Index      int
	Text       string
	Source     string
	Page       int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one entry of the display-only conversation history.
// The retrieval pipeline never consumes it.
type ChatMessage struct {
	Role    string
	Content string
}

// Embedder converts free text into a numeric vector representation.
// The same instance must be used for chunk boundary detection and for
// indexing so that vectors stay comparable.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(ctx context.Context, document Document) ([]Chunk, error)
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Clear(ctx context.Context) error
}

// Generator produces answer text from a composed prompt. Healthy reports
// whether the backing model service is reachable; it is checked before any
// expensive build starts.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Healthy(ctx context.Context) bool
}
