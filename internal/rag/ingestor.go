package rag

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/extract"
	"docqa/internal/helper"
	"docqa/internal/models"
	"docqa/internal/vectorstore"
)

// DocumentEmbedder embeds chunk text, throttled between calls.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Ingestor turns one document's markdown into embedded vector points.
// Embedding is intentionally sequential; the embedder's rate gate spaces
// the calls. All points of a document go to the store in a single batch,
// so a failure mid-embedding leaves zero points written.
type Ingestor struct {
	cfg      *config.Config
	embedder DocumentEmbedder
	store    vectorstore.Store
}

func NewIngestor(cfg *config.Config, embedder DocumentEmbedder, store vectorstore.Store) *Ingestor {
	return &Ingestor{cfg: cfg, embedder: embedder, store: store}
}

// Ingest chunks, embeds and stores one document identified by sourceURL.
// Any embedding failure aborts the whole document.
func (i *Ingestor) Ingest(ctx context.Context, text, sourceURL string) (*models.IngestResult, error) {
	if err := i.cfg.Validate(); err != nil {
		return nil, err
	}

	if err := i.store.EnsureCollection(ctx, i.embedder.Dimension()); err != nil {
		return nil, err
	}

	title := extract.Title(text, sourceURL)
	chunks := chunker.Chunks(text, sourceURL, title, chunker.Options{
		ChunkSize: i.cfg.RAG.ChunkSize,
		Overlap:   i.cfg.RAG.ChunkOverlap,
	})
	if len(chunks) == 0 {
		log.Info().Str("sourceUrl", sourceURL).Msg("no chunks produced from document")
		return &models.IngestResult{SourceURL: sourceURL, Title: title}, nil
	}

	points := make([]models.Point, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := i.embedder.EmbedDocument(ctx, chunk.Text)
		if err != nil {
			log.Error().Err(err).Str("sourceUrl", sourceURL).Int("chunk", chunk.Index).Msg("aborting ingestion")
			return nil, err
		}

		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, models.NewError(models.UnknownError, "failed to generate point id", err)
		}
		points = append(points, models.Point{
			ID:     id,
			Vector: vector,
			Payload: models.Payload{
				Text:        chunk.Text,
				Title:       title,
				SourceURL:   sourceURL,
				ChunkIndex:  chunk.Index,
				TotalChunks: chunk.TotalChunks,
				CreatedAt:   chunk.CreatedAt.Format(time.RFC3339),
				PageNumber:  extract.PageNumber(chunk.Text),
			},
		})
	}

	if err := i.store.UpsertBatch(ctx, points); err != nil {
		return nil, err
	}

	log.Info().Str("sourceUrl", sourceURL).Str("title", title).Int("points", len(points)).Msg("document ingested")
	return &models.IngestResult{
		SourceURL:     sourceURL,
		Title:         title,
		PointsWritten: len(points),
	}, nil
}
