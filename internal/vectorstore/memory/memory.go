// Package memory is an in-process vector store used for tests and local
// runs without an external deployment.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"docqa/internal/models"
)

// Store keeps points in a map guarded by a mutex. Search is brute-force
// cosine similarity.
type Store struct {
	mu     sync.RWMutex
	dim    int
	points map[string]models.Point
}

func NewStore() *Store {
	return &Store{points: make(map[string]models.Point)}
}

func (s *Store) EnsureCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim == 0 {
		s.dim = dim
	}
	return nil
}

func (s *Store) UpsertBatch(ctx context.Context, points []models.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, sourceURL string, limit int) ([]models.ScoredPoint, error) {
	if limit <= 0 {
		limit = models.DefaultTopK
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []models.ScoredPoint
	for _, p := range s.points {
		if sourceURL != "" && p.Payload.SourceURL != sourceURL {
			continue
		}
		hits = append(hits, models.ScoredPoint{Point: p, Score: cosine(vector, p.Vector)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) DeleteBySource(ctx context.Context, sourceURL string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, p := range s.points {
		if p.Payload.SourceURL == sourceURL {
			delete(s.points, id)
			deleted++
		}
	}
	return deleted, nil
}

// Count reports the number of stored points, for tests.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
