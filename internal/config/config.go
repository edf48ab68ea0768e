// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"toolsearch/pkg/embedding"
	"toolsearch/pkg/llm"
	"toolsearch/pkg/vectorstore"
)

// Config represents the complete configuration for the search pipeline.
type Config struct {
	// LLM configuration (intent extraction only; the planner is a
	// deterministic rule table and never calls an LLM).
	LLM LLMProviderConfig `json:"llm"`

	// Embedding configuration.
	Embedding EmbeddingConfig `json:"embedding"`

	// VectorStore configuration.
	VectorStore VectorStoreConfig `json:"vector_store"`

	// DocStore configuration.
	DocStore DocStoreConfig `json:"doc_store"`

	// Cache configuration.
	Cache CacheConfig `json:"cache"`

	// Pipeline configuration.
	Pipeline PipelineConfig `json:"pipeline"`
}

// LLMProviderConfig contains settings for the intent-extraction LLM provider.
type LLMProviderConfig struct {
	Provider           string  `json:"provider"` // "openai"
	APIKey             string  `json:"api_key,omitempty"`
	BaseURL            string  `json:"base_url,omitempty"`
	Model              string  `json:"model"`
	DefaultTemperature float32 `json:"default_temperature"`
	DefaultMaxTokens   int     `json:"default_max_tokens"`
	TimeoutSeconds     int     `json:"timeout_seconds"`
}

// EmbeddingConfig contains settings for embedding generation.
type EmbeddingConfig struct {
	Provider       string `json:"provider"` // "openai"
	APIKey         string `json:"api_key,omitempty"`
	BaseURL        string `json:"base_url,omitempty"`
	Model          string `json:"model"`
	Dimension      int    `json:"dimension"`
	BatchSize      int    `json:"batch_size"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// VectorStoreConfig contains settings for the vector store.
type VectorStoreConfig struct {
	Type           string                 `json:"type"` // "qdrant"
	Address        string                 `json:"address"`
	APIKey         string                 `json:"api_key,omitempty"`
	TimeoutSeconds int                    `json:"timeout_seconds"`
	Extra          map[string]interface{} `json:"extra,omitempty"`
}

// DocStoreConfig contains settings for the structured document store.
type DocStoreConfig struct {
	// URL is a path (for the embedded badgerstore backend) or a
	// connection string for an out-of-process store.
	URL            string `json:"url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// CacheConfig contains settings for the plan cache.
type CacheConfig struct {
	SimilarityThreshold float32 `json:"similarity_threshold"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	// StoreURL defaults to DocStore.URL. The plan cache does not read it:
	// its similarity index lives in the vector store's plans collection.
	StoreURL string `json:"store_url"`
}

// PipelineConfig contains the driver's request budget and per-hop timeouts.
type PipelineConfig struct {
	RequestBudgetMs int `json:"request_budget_ms"`
	LLMTimeoutMs    int `json:"llm_timeout_ms"`
	EmbedTimeoutMs  int `json:"embed_timeout_ms"`
	StoreTimeoutMs  int `json:"store_timeout_ms"`
}

// LoadFromFile loads configuration from a JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)

	return &config, nil
}

// LoadFromEnv loads configuration from environment variables. It reads
// SIMILARITY_THRESHOLD, CACHE_CONFIDENCE_THRESHOLD, EMBEDDING_DIM,
// LLM_ENDPOINT, LLM_MODEL, EMBEDDING_ENDPOINT, EMBEDDING_MODEL,
// VECTOR_STORE_URL, DOC_STORE_URL, CACHE_STORE_URL, REQUEST_BUDGET_MS,
// LLM_TIMEOUT_MS, EMBED_TIMEOUT_MS and STORE_TIMEOUT_MS into Config.
// EMBEDDING_DIM, CACHE_STORE_URL and the three per-hop timeouts are only
// stored: no component reads Embedding.Dimension, Cache.StoreURL or
// Pipeline.LLMTimeoutMs/EmbedTimeoutMs/StoreTimeoutMs, and the embedding
// dimension is not checked against the schema.
func LoadFromEnv() *Config {
	loadEnvFiles()

	docStoreURL := getEnv("DOC_STORE_URL", "./data/toolsearch.badger")

	config := &Config{
		LLM: LLMProviderConfig{
			Provider:           getEnv("LLM_PROVIDER", "openai"),
			APIKey:             getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:            getEnv("LLM_ENDPOINT", ""),
			Model:              getEnv("LLM_MODEL", "gpt-4o-mini"),
			DefaultTemperature: 0.1,
			DefaultMaxTokens:   500,
			TimeoutSeconds:     30,
		},
		Embedding: EmbeddingConfig{
			Provider:       getEnv("EMBEDDING_PROVIDER", "openai"),
			APIKey:         getEnv("EMBEDDING_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL:        getEnv("EMBEDDING_ENDPOINT", ""),
			Model:          getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension:      getEnvInt("EMBEDDING_DIM", 1536),
			BatchSize:      100,
			TimeoutSeconds: 30,
		},
		VectorStore: VectorStoreConfig{
			Type:           getEnv("VECTOR_STORE_TYPE", "qdrant"),
			Address:        getEnv("VECTOR_STORE_URL", "localhost:6334"),
			TimeoutSeconds: 30,
		},
		DocStore: DocStoreConfig{
			URL:            docStoreURL,
			TimeoutSeconds: 30,
		},
		Cache: CacheConfig{
			SimilarityThreshold: float32(getEnvFloat("SIMILARITY_THRESHOLD", 0.92)),
			ConfidenceThreshold: getEnvFloat("CACHE_CONFIDENCE_THRESHOLD", 0.5),
			StoreURL:            getEnv("CACHE_STORE_URL", docStoreURL),
		},
		Pipeline: PipelineConfig{
			RequestBudgetMs: getEnvInt("REQUEST_BUDGET_MS", 10000),
			LLMTimeoutMs:    getEnvInt("LLM_TIMEOUT_MS", 5000),
			EmbedTimeoutMs:  getEnvInt("EMBED_TIMEOUT_MS", 3000),
			StoreTimeoutMs:  getEnvInt("STORE_TIMEOUT_MS", 3000),
		},
	}

	return config
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ToLLMConfig converts to llm.Config for the intent-extraction provider.
func (c *Config) ToLLMConfig() *llm.Config {
	return &llm.Config{
		Provider:           c.LLM.Provider,
		APIKey:             c.LLM.APIKey,
		BaseURL:            c.LLM.BaseURL,
		Model:              c.LLM.Model,
		DefaultTemperature: c.LLM.DefaultTemperature,
		DefaultMaxTokens:   c.LLM.DefaultMaxTokens,
		TimeoutSeconds:     c.LLM.TimeoutSeconds,
	}
}

// ToEmbeddingConfig converts to embedding.Config.
func (c *Config) ToEmbeddingConfig() *embedding.Config {
	return &embedding.Config{
		Provider:       c.Embedding.Provider,
		APIKey:         c.Embedding.APIKey,
		BaseURL:        c.Embedding.BaseURL,
		Model:          c.Embedding.Model,
		BatchSize:      c.Embedding.BatchSize,
		TimeoutSeconds: c.Embedding.TimeoutSeconds,
	}
}

// ToVectorStoreConfig converts to vectorstore.Config.
func (c *Config) ToVectorStoreConfig() *vectorstore.Config {
	return &vectorstore.Config{
		Type:           c.VectorStore.Type,
		Address:        c.VectorStore.Address,
		APIKey:         c.VectorStore.APIKey,
		TimeoutSeconds: c.VectorStore.TimeoutSeconds,
		Extra:          c.VectorStore.Extra,
	}
}

// applyDefaults fills in default values for unspecified config fields,
// for configs loaded from a JSON file that omits some settings.
func applyDefaults(config *Config) {
	if config.LLM.DefaultTemperature == 0 {
		config.LLM.DefaultTemperature = 0.1
	}
	if config.LLM.DefaultMaxTokens == 0 {
		config.LLM.DefaultMaxTokens = 500
	}
	if config.LLM.TimeoutSeconds == 0 {
		config.LLM.TimeoutSeconds = 30
	}

	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 100
	}
	if config.Embedding.TimeoutSeconds == 0 {
		config.Embedding.TimeoutSeconds = 30
	}
	if config.Embedding.Dimension == 0 {
		config.Embedding.Dimension = 1536
	}

	if config.VectorStore.TimeoutSeconds == 0 {
		config.VectorStore.TimeoutSeconds = 30
	}

	if config.DocStore.TimeoutSeconds == 0 {
		config.DocStore.TimeoutSeconds = 30
	}

	if config.Cache.SimilarityThreshold == 0 {
		config.Cache.SimilarityThreshold = 0.92
	}
	if config.Cache.ConfidenceThreshold == 0 {
		config.Cache.ConfidenceThreshold = 0.5
	}

	if config.Pipeline.RequestBudgetMs == 0 {
		config.Pipeline.RequestBudgetMs = 10000
	}
	if config.Pipeline.LLMTimeoutMs == 0 {
		config.Pipeline.LLMTimeoutMs = 5000
	}
	if config.Pipeline.EmbedTimeoutMs == 0 {
		config.Pipeline.EmbedTimeoutMs = 3000
	}
	if config.Pipeline.StoreTimeoutMs == 0 {
		config.Pipeline.StoreTimeoutMs = 3000
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func loadEnvFiles() {
	envFiles := []string{".env", ".env.local"}
	merged := make(map[string]string)

	for _, file := range envFiles {
		envMap, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			continue
		}
		for key, value := range envMap {
			merged[key] = value
		}
	}

	for key, value := range merged {
		current, exists := os.LookupEnv(key)
		if !exists || current == "" {
			_ = os.Setenv(key, value)
		}
	}
}
