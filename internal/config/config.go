package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"docqa/internal/models"
)

// LLMConfig holds connection details for one model endpoint.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

// QdrantConfig contains connection details for a Qdrant deployment.
type QdrantConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// ChromemConfig configures the embedded chromem-go store.
type ChromemConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// PostgresConfig configures the pgvector-backed store.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Type       string         `yaml:"type"` // qdrant | chromem | pgvector | memory
	Collection string         `yaml:"collection"`
	Qdrant     QdrantConfig   `yaml:"qdrant"`
	Chromem    ChromemConfig  `yaml:"chromem"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// RAGConfig tunes the retrieval pipeline.
type RAGConfig struct {
	ChunkSize        int     `yaml:"chunk_size"`
	ChunkOverlap     int     `yaml:"chunk_overlap"`
	Dimension        int     `yaml:"dimension"`
	TopK             int     `yaml:"top_k"`
	MaxContextLength int     `yaml:"max_context_length"`
	MinContextLength int     `yaml:"min_context_length"`
	HistoryTurns     int     `yaml:"history_turns"`
	EmbedDelayMs     int     `yaml:"embed_delay_ms"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
}

// Config is the root configuration, constructed once at process start and
// injected into each component.
type Config struct {
	Store    StoreConfig `yaml:"store"`
	EmbedLLM LLMConfig   `yaml:"embed_llm"`
	GenLLM   LLMConfig   `yaml:"gen_llm"`
	RAG      RAGConfig   `yaml:"rag"`
	Listen   string      `yaml:"listen"`
}

// LoadConfig reads a YAML config file, applies environment overrides and
// fills defaults.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("QDRANT_URL"); v != "" {
		c.Store.Qdrant.URL = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		c.Store.Qdrant.APIKey = v
	}
	if v := os.Getenv("EMBED_API_KEY"); v != "" {
		c.EmbedLLM.Key = v
	}
	if v := os.Getenv("GEN_API_KEY"); v != "" {
		c.GenLLM.Key = v
	}
	if v := os.Getenv("COLLECTION_NAME"); v != "" {
		c.Store.Collection = v
	}
}

func (c *Config) applyDefaults() {
	if c.Store.Type == "" {
		c.Store.Type = "qdrant"
	}
	if c.Store.Collection == "" {
		c.Store.Collection = "documents"
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = models.DefaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = models.DefaultChunkOverlap
	}
	if c.RAG.Dimension == 0 {
		c.RAG.Dimension = models.DefaultDimension
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = models.DefaultTopK
	}
	if c.RAG.MaxContextLength == 0 {
		c.RAG.MaxContextLength = models.DefaultMaxContextLength
	}
	if c.RAG.MinContextLength == 0 {
		c.RAG.MinContextLength = models.DefaultMinContextLength
	}
	if c.RAG.HistoryTurns == 0 {
		c.RAG.HistoryTurns = models.DefaultHistoryTurns
	}
	if c.RAG.EmbedDelayMs == 0 {
		c.RAG.EmbedDelayMs = models.DefaultEmbedDelayMs
	}
	if c.RAG.Temperature == 0 {
		c.RAG.Temperature = models.DefaultTemperature
	}
	if c.RAG.MaxTokens == 0 {
		c.RAG.MaxTokens = models.DefaultMaxTokens
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
}

// Validate checks that the configured backend and model endpoints are
// usable before any external call is attempted.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case "qdrant":
		if c.Store.Qdrant.URL == "" {
			return models.NewError(models.ConfigurationError, "qdrant url is not configured", nil)
		}
	case "pgvector":
		if c.Store.Postgres.DSN == "" {
			return models.NewError(models.ConfigurationError, "postgres dsn is not configured", nil)
		}
	case "chromem", "memory":
	default:
		return models.NewError(models.ConfigurationError, fmt.Sprintf("unknown store type %q", c.Store.Type), nil)
	}
	if c.GenLLM.Model == "" {
		return models.NewError(models.ConfigurationError, "generation model is not configured", nil)
	}
	if c.GenLLM.Key == "" && c.GenLLM.Provider != "ollama" {
		return models.NewError(models.ConfigurationError, "generation API key is not configured", nil)
	}
	if c.EmbedLLM.Model == "" {
		return models.NewError(models.ConfigurationError, "embedding model is not configured", nil)
	}
	return nil
}
