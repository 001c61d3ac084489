// Package pipeline implements the per-session retrieval pipeline: top-k
// vector search over one document's chunks, prompt assembly, and answer
// synthesis through the language model.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"docchat/internal/domain"
)

const answerPrompt = `1. Use the following pieces of context to answer the question at the end.
2. If you don't know the answer, just say that "I don't know" but don't make up an answer on your own.
3. Keep the answer clear and concise.
Context: %s
Question: %s
Helpful Answer:`

// Pipeline binds a built vector index to the embedder that produced it and
// to the language model. It is constructed only after a successful index
// build and is immutable afterward.
type Pipeline struct {
	embedder  domain.Embedder
	store     domain.VectorStore
	generator domain.Generator
	topK      int
}

func New(embedder domain.Embedder, store domain.VectorStore, generator domain.Generator, topK int) *Pipeline {
	if topK <= 0 {
		topK = 3
	}
	return &Pipeline{embedder: embedder, store: store, generator: generator, topK: topK}
}

// Invoke runs retrieval and generation for the given inputs. The inputs map
// must carry the question under "question" or "input" (see NormalizeInput).
// The result always uses the single canonical key "answer"; the permissive
// key probing in ExtractAnswer exists only for results received from less
// controlled producers.
func (p *Pipeline) Invoke(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	normalized, err := NormalizeInput(inputs)
	if err != nil {
		return nil, err
	}
	question := fmt.Sprint(normalized["question"])

	vec, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	results, err := p.store.Search(ctx, vec, p.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	prompt := fmt.Sprintf(answerPrompt, formatContext(results), question)
	text, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return map[string]any{"answer": text}, nil
}

// formatContext renders each retrieved chunk with its content and source so
// the model can ground and cite its answer.
func formatContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return "(no relevant context found)"
	}
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		source := filepath.Base(r.Chunk.Source)
		if r.Chunk.Page > 0 {
			source = fmt.Sprintf("%s (page %d)", source, r.Chunk.Page)
		}
		blocks = append(blocks, fmt.Sprintf("Content: %s\nSource: %s", r.Chunk.Text, source))
	}
	return strings.Join(blocks, "\n\n")
}

// NormalizeInput maps either of the two historical input keys ("question" or
// "input") onto the canonical {"question": v} shape the pipeline expects. It
// is pure and must run before every invocation.
func NormalizeInput(inputs map[string]any) (map[string]any, error) {
	if v, ok := inputs["question"]; ok {
		return map[string]any{"question": v}, nil
	}
	if v, ok := inputs["input"]; ok {
		return map[string]any{"question": v}, nil
	}
	return nil, domain.ErrMissingQuestion
}

// ExtractAnswer pulls the answer text out of a pipeline result whose shape
// is not firmly contracted. Keys are probed in fixed priority order; when
// none match, the whole mapping is string-rendered.
func ExtractAnswer(result map[string]any) string {
	for _, key := range []string{"answer", "result", "output", "response"} {
		if v, ok := result[key]; ok {
			return fmt.Sprint(v)
		}
	}
	return fmt.Sprint(result)
}

// SplitReasoning separates a raw model answer into a thinking part and a
// final answer part. Best effort: a "Final Answer:" delimiter preceded by a
// blank line wins; otherwise the last blank-line-separated paragraph is
// taken as the answer; otherwise everything is the answer.
func SplitReasoning(text string) (thinking, answer string) {
	if idx := strings.Index(text, "\n\nFinal Answer:"); idx >= 0 {
		return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+2:])
	}
	if strings.Contains(text, "\n\n") {
		paragraphs := strings.Split(text, "\n\n")
		return strings.Join(paragraphs[:len(paragraphs)-1], "\n\n"), paragraphs[len(paragraphs)-1]
	}
	return "", text
}
