package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/models"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "qdrant", cfg.Store.Type)
	assert.Equal(t, "documents", cfg.Store.Collection)
	assert.Equal(t, models.DefaultChunkSize, cfg.RAG.ChunkSize)
	assert.Equal(t, models.DefaultDimension, cfg.RAG.Dimension)
	assert.Equal(t, models.DefaultEmbedDelayMs, cfg.RAG.EmbedDelayMs)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
store:
  type: memory
  collection: mydocs
rag:
  chunk_size: 500
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "mydocs", cfg.Store.Collection)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	// Unset fields still receive defaults.
	assert.Equal(t, models.DefaultTopK, cfg.RAG.TopK)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant.internal:6333")
	t.Setenv("GEN_API_KEY", "secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://qdrant.internal:6333", cfg.Store.Qdrant.URL)
	assert.Equal(t, "secret", cfg.GenLLM.Key)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Store:    StoreConfig{Type: "memory"},
		EmbedLLM: LLMConfig{Model: "e"},
		GenLLM:   LLMConfig{Model: "g", Key: "k"},
	}
	require.NoError(t, cfg.Validate())

	missingKey := *cfg
	missingKey.GenLLM = LLMConfig{Model: "g"}
	err := missingKey.Validate()
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ConfigurationError))

	missingURL := *cfg
	missingURL.Store = StoreConfig{Type: "qdrant"}
	err = missingURL.Validate()
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ConfigurationError))

	badType := *cfg
	badType.Store = StoreConfig{Type: "weird"}
	assert.Error(t, badType.Validate())

	// Ollama endpoints need no API key.
	ollama := *cfg
	ollama.GenLLM = LLMConfig{Model: "g", Provider: "ollama"}
	assert.NoError(t, ollama.Validate())
}
