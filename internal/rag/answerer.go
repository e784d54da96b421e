// Package rag orchestrates the retrieval pipeline: ingestion of chunked,
// embedded documents and retrieval-augmented answering over them.
package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"docqa/internal/config"
	"docqa/internal/llmservice"
	"docqa/internal/models"
	"docqa/internal/vectorstore"
)

// QueryEmbedder embeds a question into the collection's vector space.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Answerer answers questions grounded in one document's retrieved chunks.
// It holds no mutable state between calls; concurrent questions are
// independent.
type Answerer struct {
	cfg       *config.Config
	embedder  QueryEmbedder
	store     vectorstore.Store
	generator llmservice.Generator
}

func NewAnswerer(cfg *config.Config, embedder QueryEmbedder, store vectorstore.Store, generator llmservice.Generator) *Answerer {
	return &Answerer{cfg: cfg, embedder: embedder, store: store, generator: generator}
}

// Answer embeds the question, searches the document's chunks, assembles a
// bounded context window and asks the generative model for a grounded
// answer. Every failure is terminal for this question and carries a
// distinct kind; no retries happen anywhere on this path.
func (a *Answerer) Answer(ctx context.Context, question, sourceURL string, history []models.ChatTurn) (*models.QueryResponse, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	if err := a.store.EnsureCollection(ctx, a.embedder.Dimension()); err != nil {
		return nil, err
	}

	vector, err := a.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	if vector == nil {
		return nil, models.NewError(models.EmbeddingFailure, "question is empty", nil)
	}

	hits, err := a.store.Search(ctx, vector, sourceURL, a.cfg.RAG.TopK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, models.NewError(models.NoRelevantContext, "no relevant information found for this document", nil)
	}

	contextText, truncated := assembleContext(hits, a.cfg.RAG.MaxContextLength)
	if len(contextText) < a.cfg.RAG.MinContextLength {
		return nil, models.NewError(models.InsufficientContext, "retrieved context is too short to answer from", nil)
	}
	if truncated {
		contextText += "..."
	}

	historyText := foldHistory(history, a.cfg.RAG.HistoryTurns)
	userPrompt := fmt.Sprintf(models.UserPromptTemplate, contextText, historyText, question)

	answer, err := a.generator.Generate(ctx, models.SystemPromptTemplate, userPrompt)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("sourceUrl", sourceURL).Int("hits", len(hits)).Msg("answer generated")
	return &models.QueryResponse{
		Answer:  answer,
		Sources: buildSources(hits),
	}, nil
}

// assembleContext joins retrieved chunks in similarity order, labeling each
// with its approximate page, and truncates the result to maxLen.
func assembleContext(hits []models.ScoredPoint, maxLen int) (string, bool) {
	parts := make([]string, len(hits))
	for i, h := range hits {
		page := "N/A"
		if h.Payload.PageNumber != nil {
			page = fmt.Sprintf("%d", *h.Payload.PageNumber)
		}
		parts[i] = fmt.Sprintf("Page %s: %s", page, h.Payload.Text)
	}
	joined := strings.Join(parts, "\n\n")
	if len(joined) > maxLen {
		return truncate(joined, maxLen), true
	}
	return joined, false
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// foldHistory renders the most recent turns as plain "role: content"
// lines. Document context keeps priority; history is capped, not the
// context window.
func foldHistory(history []models.ChatTurn, maxTurns int) string {
	if len(history) == 0 {
		return ""
	}
	if maxTurns > 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}
	var sb strings.Builder
	sb.WriteString("Conversation so far:\n")
	for _, turn := range history {
		sb.WriteString(turn.Role)
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

func buildSources(hits []models.ScoredPoint) []models.Source {
	sources := make([]models.Source, len(hits))
	for i, h := range hits {
		text := h.Payload.Text
		if len(text) > models.SourcePreviewLength {
			text = truncate(text, models.SourcePreviewLength) + "..."
		}
		sources[i] = models.Source{
			Text:       text,
			SourceURL:  h.Payload.SourceURL,
			PageNumber: h.Payload.PageNumber,
			Score:      h.Score,
		}
	}
	return sources
}
