// Package llmservice calls the generative language model used to compose
// answers from retrieved context.
package llmservice

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"docqa/internal/config"
	"docqa/internal/models"
)

// Generator is the chat-completion surface the answerer depends on.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Client generates completions through an OpenAI-compatible endpoint with
// deterministic-leaning sampling and bounded output length.
type Client struct {
	cfg         *config.LLMConfig
	temperature float64
	maxTokens   int
}

func NewClient(cfg *config.LLMConfig, temperature float64, maxTokens int) *Client {
	if temperature <= 0 {
		temperature = models.DefaultTemperature
	}
	if maxTokens <= 0 {
		maxTokens = models.DefaultMaxTokens
	}
	return &Client{cfg: cfg, temperature: temperature, maxTokens: maxTokens}
}

// Generate runs one chat completion. Provider failures are classified into
// the error taxonomy; an empty completion is a GenerationFailure.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	llm, err := openai.New(
		openai.WithBaseURL(c.cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(c.cfg.Key, "Bearer ")),
		openai.WithModel(c.cfg.Model),
	)
	if err != nil {
		return "", models.ClassifyProviderError(err)
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: system}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: user}},
		},
	}

	res, err := llm.GenerateContent(ctx, messages,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		log.Error().Err(err).Str("model", c.cfg.Model).Msg("generation call failed")
		return "", models.ClassifyProviderError(err)
	}
	if len(res.Choices) == 0 || strings.TrimSpace(res.Choices[0].Content) == "" {
		return "", models.NewError(models.GenerationFailure, "model returned no content", nil)
	}
	return res.Choices[0].Content, nil
}
