package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docchat/internal/domain"
	"docchat/internal/loader"
	"docchat/internal/pipeline"
)

// StoreFactory builds a fresh, exclusively owned vector store for one
// session's index. Rebuilds get a new store so a completed pipeline is only
// ever swapped in whole.
type StoreFactory func(sessionID string) (domain.VectorStore, error)

// Loader extracts documents from an uploaded file.
type Loader func(path string) ([]domain.Document, error)

// Manager orchestrates the session-scoped document pipeline.
type Manager struct {
	sessions     *Store
	embedder     domain.Embedder
	chunker      domain.Chunker
	generator    domain.Generator
	newStore     StoreFactory
	load         Loader
	topK         int
	buildTimeout time.Duration
	log          *zap.Logger
}

// Options configures a Manager.
type Options struct {
	Sessions     *Store
	Embedder     domain.Embedder
	Chunker      domain.Chunker
	Generator    domain.Generator
	NewStore     StoreFactory
	Load         Loader
	TopK         int
	BuildTimeout time.Duration
	Logger       *zap.Logger
}

func NewManager(opts Options) *Manager {
	if opts.Load == nil {
		opts.Load = loader.Load
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		sessions:     opts.Sessions,
		embedder:     opts.Embedder,
		chunker:      opts.Chunker,
		generator:    opts.Generator,
		newStore:     opts.NewStore,
		load:         opts.Load,
		topK:         opts.TopK,
		buildTimeout: opts.BuildTimeout,
		log:          opts.Logger,
	}
}

// Status reports the externally visible state of a session. Identifiers
// never uploaded to report none with empty filename and error text.
func (m *Manager) Status(sessionID string) Snapshot {
	return m.sessions.GetOrCreate(sessionID).Snapshot()
}

// Healthy reports whether the language model backend is reachable.
func (m *Manager) Healthy(ctx context.Context) bool {
	return m.generator.Healthy(ctx)
}

// Begin synchronously accepts a file for a session before background
// processing starts. Any prior pipeline for the identifier is discarded.
func (m *Manager) Begin(sessionID, filename string) {
	m.sessions.GetOrCreate(sessionID).accept(filename)
	m.log.Info("upload accepted", zap.String("session_id", sessionID), zap.String("filename", filename))
}

// Build runs the document pipeline for an accepted upload: load, chunk,
// embed, index, and bind the retrieval pipeline. It is intended to run as a
// background task; failures are captured into the session state rather than
// returned to the upload caller.
func (m *Manager) Build(ctx context.Context, sessionID, path, filename string) {
	sess := m.sessions.GetOrCreate(sessionID)
	sess.processing()

	ctx, cancel := context.WithTimeout(ctx, m.buildTimeout)
	defer cancel()

	if err := m.build(ctx, sess, sessionID, path); err != nil {
		sess.fail(err.Error())
		m.log.Warn("document processing failed",
			zap.String("session_id", sessionID),
			zap.String("filename", filename),
			zap.Error(err))
		return
	}
	m.log.Info("document processing completed",
		zap.String("session_id", sessionID),
		zap.String("filename", filename))
}

func (m *Manager) build(ctx context.Context, sess *Session, sessionID, path string) error {
	if !m.generator.Healthy(ctx) {
		return fmt.Errorf("%w: Ollama is not running. Please start Ollama before processing documents", domain.ErrServiceUnavailable)
	}

	docs, err := m.load(path)
	if err != nil {
		return err
	}

	var chunks []domain.Chunk
	for _, d := range docs {
		cs, err := m.chunker.Chunk(ctx, d)
		if err != nil {
			return fmt.Errorf("%w: chunking: %v", domain.ErrIndexBuild, err)
		}
		chunks = append(chunks, cs...)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: document produced no chunks", domain.ErrIndexBuild)
	}

	vectors := make([][]float64, len(chunks))
	for i := range chunks {
		vec, err := m.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return fmt.Errorf("%w: embedding chunk %d: %v", domain.ErrIndexBuild, i, err)
		}
		vectors[i] = vec
	}

	store, err := m.newStore(sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}
	if err := store.Init(ctx, m.embedder.Dimension()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}
	if err := store.Upsert(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}

	// Swap in the completed pipeline in one step; a half-built index is
	// never observable.
	sess.complete(pipeline.New(m.embedder, store, m.generator, m.topK))
	return nil
}

// Result is a question's answer, with the model's reasoning separated out
// when requested.
type Result struct {
	Answer   string
	Thinking string
}

// Answer runs the bound retrieval pipeline for a completed session. Failures
// during retrieval or generation do not alter session state; the session
// remains usable.
func (m *Manager) Answer(ctx context.Context, sessionID, question string, includeReasoning bool) (Result, error) {
	sess := m.sessions.GetOrCreate(sessionID)
	snap := sess.Snapshot()
	pipe := sess.Pipeline()
	if snap.Status != StatusCompleted || pipe == nil {
		return Result{}, &domain.NotReadyError{Status: snap.Status, Detail: snap.Err}
	}

	// Historical callers pass the question under "input"; the pipeline
	// normalizes it.
	raw, err := pipe.Invoke(ctx, map[string]any{"input": question})
	if err != nil {
		if errors.Is(err, domain.ErrMissingQuestion) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	answer := pipeline.ExtractAnswer(raw)
	if !includeReasoning {
		return Result{Answer: answer}, nil
	}
	thinking, final := pipeline.SplitReasoning(answer)
	return Result{Answer: final, Thinking: thinking}, nil
}
