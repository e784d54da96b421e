// Package embedding wraps a remote feature-extraction model behind a
// rate-limited client producing fixed-dimension vectors for documents
// and queries.
package embedding

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"docqa/internal/config"
	"docqa/internal/models"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider is the narrow surface of a langchaingo embedder the client
// needs. *embeddings.EmbedderImpl satisfies it.
type Provider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Client enforces the configured vector dimension and spaces bulk document
// embedding calls with a fixed-interval gate. Upstream rate limits are
// honored by sequencing the calls, not by a worker pool.
type Client struct {
	provider  Provider
	dimension int
	limiter   *rate.Limiter
}

// NewClient builds a client around a provider. delay is the minimum gap
// between successive document embedding calls during ingestion.
func NewClient(provider Provider, dimension int, delay time.Duration) *Client {
	if dimension <= 0 {
		dimension = models.DefaultDimension
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return &Client{provider: provider, dimension: dimension, limiter: limiter}
}

// Dimension returns the vector size the client enforces.
func (c *Client) Dimension() int { return c.dimension }

// EmbedDocument embeds one chunk of document text. The call blocks on the
// rate gate first, so looping over chunks yields the sequential throttled
// pattern ingestion requires. A batched (nested) provider response is
// flattened to a single vector.
func (c *Client) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.NewError(models.TimeoutError, "embedding throttle wait interrupted", err)
	}
	vectors, err := c.provider.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, models.NewError(models.EmbeddingFailure, "document embedding call failed", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, models.NewError(models.EmbeddingFailure, "provider returned no embedding", nil)
	}
	return c.checkDimension(vectors[0])
}

// EmbedQuery embeds a question. Empty or whitespace-only input yields a
// nil vector and no error.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	vector, err := c.provider.EmbedQuery(ctx, text)
	if err != nil {
		return nil, models.NewError(models.EmbeddingFailure, "query embedding call failed", err)
	}
	return c.checkDimension(vector)
}

func (c *Client) checkDimension(vector []float32) ([]float32, error) {
	if len(vector) != c.dimension {
		log.Error().Int("got", len(vector)).Int("want", c.dimension).Msg("embedding dimension mismatch")
		return nil, models.NewError(models.EmbeddingFailure, "embedding dimension mismatch", nil)
	}
	return vector, nil
}

// NewOpenAIProvider creates an OpenAI-compatible embedder from config.
func NewOpenAIProvider(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize embedding LLM")
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		log.Error().Err(err).Msg("failed to create embedder")
		return nil, err
	}
	return embedder, nil
}

// NewOllamaProvider creates an Ollama-backed embedder from config.
func NewOllamaProvider(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize embedding LLM")
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		log.Error().Err(err).Msg("failed to create embedder")
		return nil, err
	}
	return embedder, nil
}

// NewProvider selects the provider implementation by config.
func NewProvider(cfg *config.LLMConfig) (Provider, error) {
	if cfg.Provider == "ollama" {
		return NewOllamaProvider(cfg)
	}
	return NewOpenAIProvider(cfg)
}
