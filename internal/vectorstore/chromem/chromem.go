// Package chromem adapts the embedded chromem-go database to the
// vectorstore contract, for running without an external deployment.
package chromem

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"docqa/internal/models"
)

const compress = false

// Store wraps a chromem-go collection. Payload metadata is stored as the
// string map chromem supports and rebuilt on read.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
}

// NewStore opens a persistent database at dbPath, or an in-memory one
// when inMemory is set.
func NewStore(dbPath, collectionName string, inMemory bool) (*Store, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}
	return &Store{db: db, name: collectionName}, nil
}

func (s *Store) EnsureCollection(ctx context.Context, dim int) error {
	c, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return models.NewError(models.CollectionUnavailable, "failed to create/get collection", err)
	}
	s.collection = c
	return nil
}

func (s *Store) UpsertBatch(ctx context.Context, points []models.Point) error {
	if s.collection == nil {
		return models.NewError(models.CollectionUnavailable, "collection not initialized", nil)
	}
	if len(points) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		docs[i] = chromem.Document{
			ID:        p.ID,
			Content:   p.Payload.Text,
			Metadata:  metadataFromPayload(p.Payload),
			Embedding: p.Vector,
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return models.NewError(models.CollectionUnavailable, "failed to add documents", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, sourceURL string, limit int) ([]models.ScoredPoint, error) {
	if s.collection == nil {
		return nil, models.NewError(models.CollectionUnavailable, "collection not initialized", nil)
	}
	if limit <= 0 {
		limit = models.DefaultTopK
	}
	// chromem rejects nResults above the collection size.
	if n := s.collection.Count(); n < limit {
		if n == 0 {
			return nil, nil
		}
		limit = n
	}
	opts := chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       limit,
	}
	if sourceURL != "" {
		opts.Where = map[string]string{"sourceUrl": sourceURL}
	}
	results, err := s.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		// chromem errors on filters matching fewer documents than
		// nResults; retry unfiltered as the degraded last resort.
		log.Warn().Err(err).Str("sourceUrl", sourceURL).Msg("filtered query failed, retrying unfiltered")
		opts.Where = nil
		results, err = s.collection.QueryWithOptions(ctx, opts)
		if err != nil {
			return nil, models.NewError(models.CollectionUnavailable, "similarity query failed", err)
		}
	}
	hits := make([]models.ScoredPoint, 0, len(results))
	for _, r := range results {
		hits = append(hits, models.ScoredPoint{
			Point: models.Point{
				ID:      r.ID,
				Payload: payloadFromMetadata(r.Content, r.Metadata),
			},
			Score: float64(r.Similarity),
		})
	}
	return hits, nil
}

func (s *Store) DeleteBySource(ctx context.Context, sourceURL string) (int, error) {
	if s.collection == nil {
		return 0, models.NewError(models.CollectionUnavailable, "collection not initialized", nil)
	}
	before := s.collection.Count()
	if err := s.collection.Delete(ctx, map[string]string{"sourceUrl": sourceURL}, nil); err != nil {
		return 0, models.NewError(models.CollectionUnavailable, "delete failed", err)
	}
	return before - s.collection.Count(), nil
}

func metadataFromPayload(p models.Payload) map[string]string {
	m := map[string]string{
		"title":       p.Title,
		"sourceUrl":   p.SourceURL,
		"chunkIndex":  strconv.Itoa(p.ChunkIndex),
		"totalChunks": strconv.Itoa(p.TotalChunks),
		"createdAt":   p.CreatedAt,
	}
	if p.PageNumber != nil {
		m["pageNumber"] = strconv.Itoa(*p.PageNumber)
	}
	return m
}

func payloadFromMetadata(content string, m map[string]string) models.Payload {
	p := models.Payload{
		Text:      content,
		Title:     m["title"],
		SourceURL: m["sourceUrl"],
		CreatedAt: m["createdAt"],
	}
	p.ChunkIndex, _ = strconv.Atoi(m["chunkIndex"])
	p.TotalChunks, _ = strconv.Atoi(m["totalChunks"])
	if v, ok := m["pageNumber"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.PageNumber = &n
		}
	}
	return p
}
