package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"docchat/internal/api"
	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/domain"
	ollamaembed "docchat/internal/embedding/ollama"
	"docchat/internal/embedding/openai"
	ollamallm "docchat/internal/llm/ollama"
	"docchat/internal/logger"
	"docchat/internal/session"
	"docchat/internal/vectorstore/memory"
	"docchat/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docchat/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl := logger.New(cfg.Server.LogFile, cfg.Server.Debug)
	defer zl.Sync()

	emb, err := buildEmbedder(cfg)
	if err != nil {
		zl.Fatal("embedder init failed", zap.Error(err))
	}
	newStore, err := buildStoreFactory(cfg)
	if err != nil {
		zl.Fatal("vector store init failed", zap.Error(err))
	}
	gen := ollamallm.NewClient(ollamallm.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})

	mgr := session.NewManager(session.Options{
		Sessions:     session.NewStore(time.Duration(cfg.Server.SessionTTLMins)*time.Minute, 10*time.Minute),
		Embedder:     emb,
		Chunker:      chunker.NewSemanticChunker(emb, cfg.Chunker.BreakpointPercentile, cfg.Chunker.MinSentences),
		Generator:    gen,
		NewStore:     newStore,
		TopK:         cfg.Retrieval.TopK,
		BuildTimeout: time.Duration(cfg.Server.BuildTimeoutMin) * time.Minute,
		Logger:       zl,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(cfg.Server.Addr, mgr, zl, cfg.Server.Debug)
	if err := srv.Run(ctx); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "ollama", "":
		oc := cfg.Embedder.Ollama
		if oc == nil {
			oc = &config.OllamaEmbedderConfig{}
		}
		return ollamaembed.NewClient(ollamaembed.Config{
			BaseURL: oc.BaseURL,
			Model:   oc.Model,
			Timeout: time.Duration(oc.TimeoutSecs) * time.Second,
		}), nil
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func buildStoreFactory(cfg *config.AppConfig) (session.StoreFactory, error) {
	switch cfg.VectorStore.Type {
	case "memory", "":
		return func(string) (domain.VectorStore, error) {
			return memory.NewStore(), nil
		}, nil
	case "qdrant":
		qc := cfg.VectorStore.Qdrant
		if qc == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return func(sessionID string) (domain.VectorStore, error) {
			collection := qc.Collection
			if collection == "" {
				collection = "docchat"
			}
			return qdrant.NewStore(qdrant.Config{
				URL:        qc.URL,
				APIKey:     qc.APIKey,
				Collection: collection + "_" + sessionID,
				Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
			}), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}
}
