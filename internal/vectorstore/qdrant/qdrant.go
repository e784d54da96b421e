// Package qdrant is a REST client for a Qdrant deployment implementing
// the vectorstore contract.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"docqa/internal/models"
)

const sourceField = "sourceUrl"

// Storage speaks the Qdrant HTTP API. It assumes cosine distance and
// creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection reads the collection metadata and creates the
// collection with the given size and cosine distance when it is absent.
func (s *Storage) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return models.NewError(models.ConfigurationError, "invalid vector dimension", nil)
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, nil)
	if err == nil && status < 300 {
		return nil
	}
	if err != nil && status == 0 {
		return models.NewError(models.CollectionUnavailable, "vector store unreachable", err)
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return models.NewError(models.CollectionUnavailable, "failed to create collection", err)
	}
	return nil
}

// UpsertBatch writes all points in one call with wait=true so the write
// is durably acknowledged before returning.
func (s *Storage) UpsertBatch(ctx context.Context, points []models.Point) error {
	if len(points) == 0 {
		return nil
	}
	reqPoints := make([]map[string]any, len(points))
	for i, p := range points {
		reqPoints[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}
	body := map[string]any{"points": reqPoints}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil); err != nil {
		return models.NewError(models.CollectionUnavailable, "point upsert failed", err)
	}
	return nil
}

// Search runs a similarity search restricted to one sourceUrl. Filter
// semantics vary across Qdrant deployments, so three strategies are tried
// in order: exact match filter, any-of match filter with the same value,
// and finally no filter at all. The unfiltered rung returns global
// results the caller must treat as degraded.
func (s *Storage) Search(ctx context.Context, vector []float32, sourceURL string, limit int) ([]models.ScoredPoint, error) {
	if limit <= 0 {
		limit = models.DefaultTopK
	}

	filters := []map[string]any{}
	if sourceURL != "" {
		s.ensurePayloadIndex(ctx)
		filters = append(filters,
			matchFilter(sourceURL),
			anyFilter(sourceURL),
		)
	}
	filters = append(filters, nil)

	var lastErr error
	for i, filter := range filters {
		hits, err := s.searchOnce(ctx, vector, filter, limit)
		if err == nil {
			if i > 0 {
				log.Warn().Int("strategy", i+1).Str("sourceUrl", sourceURL).Msg("search filter fallback engaged")
			}
			return hits, nil
		}
		lastErr = err
	}
	return nil, models.NewError(models.CollectionUnavailable, "all search strategies failed", lastErr)
}

func (s *Storage) searchOnce(ctx context.Context, vector []float32, filter map[string]any, limit int) ([]models.ScoredPoint, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter != nil {
		req["filter"] = filter
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload models.Payload `json:"payload"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	hits := make([]models.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, models.ScoredPoint{
			Point: models.Point{ID: fmt.Sprint(r.ID), Payload: r.Payload},
			Score: r.Score,
		})
	}
	return hits, nil
}

// DeleteBySource removes every point carrying the sourceUrl. The primary
// path counts matches and deletes by filter; when the filtered delete is
// rejected, all points are scrolled (bounded), matched client-side and
// deleted by explicit ID list. Zero matches is success.
func (s *Storage) DeleteBySource(ctx context.Context, sourceURL string) (int, error) {
	s.ensurePayloadIndex(ctx)

	count, countErr := s.countBySource(ctx, sourceURL)
	if countErr == nil {
		if count == 0 {
			return 0, nil
		}
		body := map[string]any{"filter": matchFilter(sourceURL)}
		if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/delete?wait=true"), body, nil); err == nil {
			return count, nil
		} else {
			log.Warn().Err(err).Str("sourceUrl", sourceURL).Msg("filtered delete failed, falling back to scroll")
		}
	}

	ids, err := s.scrollIDsBySource(ctx, sourceURL)
	if err != nil {
		return 0, models.NewError(models.CollectionUnavailable, "delete fallback scroll failed", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	body := map[string]any{"points": ids}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/delete?wait=true"), body, nil); err != nil {
		return 0, models.NewError(models.CollectionUnavailable, "delete by id list failed", err)
	}
	return len(ids), nil
}

func (s *Storage) countBySource(ctx context.Context, sourceURL string) (int, error) {
	req := map[string]any{"filter": matchFilter(sourceURL), "exact": true}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/count"), req, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// scrollIDsBySource paginates over all points up to ScrollPageLimit and
// filters by payload equality client-side.
func (s *Storage) scrollIDsBySource(ctx context.Context, sourceURL string) ([]string, error) {
	var ids []string
	var offset any
	const pageSize = 256
	for len(ids) < models.ScrollPageLimit {
		req := map[string]any{
			"limit":        pageSize,
			"with_payload": true,
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					ID      any            `json:"id"`
					Payload models.Payload `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/scroll"), req, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			if p.Payload.SourceURL == sourceURL {
				ids = append(ids, fmt.Sprint(p.ID))
			}
		}
		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			break
		}
		offset = resp.Result.NextPageOffset
	}
	return ids, nil
}

// ensurePayloadIndex opportunistically creates the keyword index used by
// filtered operations. An "already exists" response is swallowed.
func (s *Storage) ensurePayloadIndex(ctx context.Context) {
	body := map[string]any{
		"field_name":   sourceField,
		"field_schema": "keyword",
	}
	status, err := s.do(ctx, http.MethodPut, s.collectionURL("/index"), body, nil)
	if err != nil && status != http.StatusConflict && status != http.StatusBadRequest {
		log.Debug().Err(err).Msg("payload index creation skipped")
	}
}

func matchFilter(sourceURL string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": sourceField, "match": map[string]any{"value": sourceURL}},
		},
	}
}

func anyFilter(sourceURL string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": sourceField, "match": map[string]any{"any": []string{sourceURL}}},
		},
	}
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

// do issues a request and returns the HTTP status. A zero status means
// the request never reached the server.
func (s *Storage) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, string(payload))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
