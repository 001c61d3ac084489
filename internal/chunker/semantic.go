// Package chunker splits documents into retrievable passages. Boundaries are
// decided by embedding-similarity discontinuity between adjacent sentences,
// not by fixed length, so chunk count depends on the embedding model and the
// document content.
package chunker

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"docchat/internal/domain"
)

// SemanticChunker splits text where the cosine distance between adjacent
// sentence embeddings exceeds a percentile of all adjacent distances.
type SemanticChunker struct {
	embedder             domain.Embedder
	breakpointPercentile float64
	minSentences         int
	splitter             *regexp.Regexp
}

func NewSemanticChunker(embedder domain.Embedder, breakpointPercentile float64, minSentences int) *SemanticChunker {
	if breakpointPercentile <= 0 || breakpointPercentile > 100 {
		breakpointPercentile = 95
	}
	if minSentences <= 0 {
		minSentences = 1
	}
	return &SemanticChunker{
		embedder:             embedder,
		breakpointPercentile: breakpointPercentile,
		minSentences:         minSentences,
		splitter:             regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}
}

func (c *SemanticChunker) Chunk(ctx context.Context, document domain.Document) ([]domain.Chunk, error) {
	sentences := c.splitter.FindAllString(document.Content, -1)
	if len(sentences) == 0 {
		trimmed := strings.TrimSpace(document.Content)
		if trimmed == "" {
			return nil, nil
		}
		sentences = []string{trimmed}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}

	if len(sentences) <= c.minSentences {
		return c.assemble(document, [][]string{sentences}), nil
	}

	vectors := make([][]float64, len(sentences))
	for i, s := range sentences {
		vec, err := c.embedder.Embed(ctx, s)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}

	distances := make([]float64, len(sentences)-1)
	for i := 0; i < len(sentences)-1; i++ {
		distances[i] = 1 - cosine(vectors[i], vectors[i+1])
	}
	threshold := percentile(distances, c.breakpointPercentile)

	var groups [][]string
	var current []string
	for i, s := range sentences {
		current = append(current, s)
		if i < len(distances) && distances[i] > threshold && len(current) >= c.minSentences {
			groups = append(groups, current)
			current = nil
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return c.assemble(document, groups), nil
}

func (c *SemanticChunker) assemble(document domain.Document, groups [][]string) []domain.Chunk {
	var chunks []domain.Chunk
	idx := 0
	for _, group := range groups {
		text := strings.TrimSpace(strings.Join(group, " "))
		if text == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Index:      idx,
			Text:       text,
			Source:     document.Path,
			Page:       document.Page,
		})
		idx++
	}
	return chunks
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// percentile returns the p-th percentile of vals using nearest-rank on a
// sorted copy.
func percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
