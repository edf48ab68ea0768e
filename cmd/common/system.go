// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package common

import (
	"fmt"
	"time"

	"toolsearch/internal/config"
	"toolsearch/pkg/cache"
	"toolsearch/pkg/docstore"
	"toolsearch/pkg/docstore/badgerstore"
	"toolsearch/pkg/domainschema"
	"toolsearch/pkg/embedding"
	"toolsearch/pkg/intent"
	"toolsearch/pkg/llm"
	"toolsearch/pkg/llm/openai"
	"toolsearch/pkg/pipeline"
	"toolsearch/pkg/planner"
	"toolsearch/pkg/retrieval"
	"toolsearch/pkg/vectorstore"
	"toolsearch/pkg/vectorstore/qdrant"

	"go.uber.org/zap"
)

// System wires every collaborator the search pipeline needs: the
// domain schema registry, the LLM/embedding/store clients, the plan
// cache, and the pipeline.Driver that sequences the five search
// stages over them.
type System struct {
	Config      *config.Config
	Registry    *domainschema.Registry
	LLM         llm.Provider
	Embedder    embedding.Embedder
	VectorStore vectorstore.Store
	DocStore    docstore.Store
	Cache       *cache.Cache
	Driver      *pipeline.Driver
	Logger      *zap.Logger
}

// InitializeSystem creates and wires every system component based on
// config, in the order each collaborator needs its dependencies:
// schema, then LLM/embedder/stores, then the cache and driver that sit
// on top of them.
func InitializeSystem(cfg *config.Config) (*System, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	sys := &System{Config: cfg, Logger: logger}

	if err := sys.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := sys.initLLM(); err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	if err := sys.initEmbedder(); err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if err := sys.initVectorStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	if err := sys.initDocStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize doc store: %w", err)
	}
	if err := sys.initCache(); err != nil {
		return nil, fmt.Errorf("failed to initialize plan cache: %w", err)
	}
	sys.initDriver()

	return sys, nil
}

func (s *System) initSchema() error {
	s.Registry = domainschema.NewRegistry()
	return s.Registry.RegisterBuiltIn()
}

func (s *System) initLLM() error {
	switch s.Config.LLM.Provider {
	case "openai":
		provider, err := openai.NewProvider(s.Config.LLM.APIKey, s.Config.LLM.Model, s.Config.ToLLMConfig())
		if err != nil {
			return fmt.Errorf("failed to create LLM provider: %w", err)
		}
		s.LLM = provider
	default:
		return fmt.Errorf("unsupported LLM provider: %s", s.Config.LLM.Provider)
	}
	return nil
}

func (s *System) initEmbedder() error {
	switch s.Config.Embedding.Provider {
	case "openai":
		embedder, err := embedding.NewOpenAIEmbedder(s.Config.Embedding.APIKey, s.Config.Embedding.Model, s.Config.ToEmbeddingConfig())
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		s.Embedder = embedder
	default:
		return fmt.Errorf("unsupported embedding provider: %s", s.Config.Embedding.Provider)
	}
	return nil
}

func (s *System) initVectorStore() error {
	switch s.Config.VectorStore.Type {
	case "qdrant":
		store, err := qdrant.NewStore(s.Config.VectorStore.Address, s.Config.ToVectorStoreConfig())
		if err != nil {
			return fmt.Errorf("failed to create vector store: %w", err)
		}
		s.VectorStore = store
	default:
		return fmt.Errorf("unsupported vector store type: %s", s.Config.VectorStore.Type)
	}
	return nil
}

func (s *System) initDocStore() error {
	store, err := badgerstore.Open(s.Config.DocStore.URL)
	if err != nil {
		return fmt.Errorf("failed to open doc store at %q: %w", s.Config.DocStore.URL, err)
	}
	s.DocStore = store
	return nil
}

func (s *System) initCache() error {
	schema := s.Registry.Current()
	s.Cache = cache.New(
		s.VectorStore,
		schema.Version,
		s.Logger,
		cache.WithSimilarityThreshold(s.Config.Cache.SimilarityThreshold),
		cache.WithConfidenceThreshold(s.Config.Cache.ConfidenceThreshold),
	)
	return nil
}

func (s *System) initDriver() {
	extractor := intent.New(s.LLM, s.Registry, &intent.Config{
		Temperature: s.Config.LLM.DefaultTemperature,
		MaxTokens:   s.Config.LLM.DefaultMaxTokens,
	}, s.Logger)

	queryPlanner := planner.New(s.Registry)
	executor := retrieval.NewExecutor(s.VectorStore, s.Embedder, s.DocStore, s.Logger)

	budget := time.Duration(s.Config.Pipeline.RequestBudgetMs) * time.Millisecond
	s.Driver = pipeline.New(s.Registry, s.Cache, extractor, queryPlanner, executor, s.Embedder, budget, s.Logger)
}

// Close releases every resource the system opened: the vector store's
// connection and the embedded doc store's on-disk handle.
func (s *System) Close() error {
	var errs []error
	if s.VectorStore != nil {
		if err := s.VectorStore.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.DocStore != nil {
		if err := s.DocStore.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Logger != nil {
		_ = s.Logger.Sync()
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing system: %v", errs)
	}
	return nil
}
