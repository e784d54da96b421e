// Package vectorstore defines the persistence contract for embedded
// chunks and the similarity search over them.
package vectorstore

import (
	"context"

	"docqa/internal/models"
)

// Store persists vector points and supports filtered similarity search.
// A document's points all share one sourceUrl payload value; deletion and
// filtering key off that field. Deleting a sourceUrl with no matching
// points is success with a zero count, not an error.
type Store interface {
	// EnsureCollection is idempotent: it reads collection metadata and
	// creates the collection with the given vector size when absent.
	EnsureCollection(ctx context.Context, dim int) error

	// UpsertBatch writes all points in one call and waits for durability
	// acknowledgment. One document's points go in a single batch.
	UpsertBatch(ctx context.Context, points []models.Point) error

	// Search returns the top-K points most similar to vector, restricted
	// to the given sourceURL when non-empty.
	Search(ctx context.Context, vector []float32, sourceURL string, limit int) ([]models.ScoredPoint, error)

	// DeleteBySource removes every point of one document and reports how
	// many were removed.
	DeleteBySource(ctx context.Context, sourceURL string) (int, error)
}
