package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/models"
)

func point(id, source string, vec []float32) models.Point {
	return models.Point{ID: id, Vector: vec, Payload: models.Payload{Text: "text " + id, SourceURL: source}}
}

func TestSearchFiltersBySource(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, 3))
	require.NoError(t, s.UpsertBatch(ctx, []models.Point{
		point("a", "doc1", []float32{1, 0, 0}),
		point("b", "doc1", []float32{0.9, 0.1, 0}),
		point("c", "doc2", []float32{1, 0, 0}),
	}))

	hits, err := s.Search(ctx, []float32{1, 0, 0}, "doc1", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "doc1", h.Payload.SourceURL)
	}
	// Highest similarity first.
	assert.Equal(t, "a", hits[0].ID)
}

func TestSearchLimit(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.UpsertBatch(ctx, []models.Point{
		point("a", "doc1", []float32{1, 0, 0}),
		point("b", "doc1", []float32{0, 1, 0}),
		point("c", "doc1", []float32{0, 0, 1}),
	}))
	hits, err := s.Search(ctx, []float32{1, 0, 0}, "doc1", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestDeleteBySourceIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.UpsertBatch(ctx, []models.Point{
		point("a", "doc1", []float32{1, 0, 0}),
		point("b", "doc2", []float32{0, 1, 0}),
	}))

	n, err := s.DeleteBySource(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, s.Count())

	// Second delete of the same source is success with zero count.
	n, err = s.DeleteBySource(ctx, "doc1")
	require.NoError(t, err)
	assert.Zero(t, n)
}
