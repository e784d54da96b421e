// Package pgvector stores points in Postgres with the pgvector extension,
// using bun for schema management and queries.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"docqa/internal/config"
	"docqa/internal/models"
)

// PointRow is the relational shape of one vector point. The embedding
// column type is not declared here: its dimension comes from config, so
// EnsureCollection issues the DDL itself.
type PointRow struct {
	bun.BaseModel `bun:"table:points,alias:p"`
	ID            string    `bun:"id,pk"`
	Embedding     []float32 `bun:"embedding,notnull"`
	Text          string    `bun:"text,notnull"`
	Title         string    `bun:"title"`
	SourceURL     string    `bun:"source_url,notnull"`
	ChunkIndex    int       `bun:"chunk_index"`
	TotalChunks   int       `bun:"total_chunks"`
	CreatedAt     string    `bun:"created_at"`
	PageNumber    *int      `bun:"page_number"`
	Distance      float64   `bun:"distance,scanonly"`
}

// Store implements the vectorstore contract over a pgvector table.
type Store struct {
	db *bun.DB
}

// NewStore connects to Postgres using the configured DSN.
func NewStore(cfg *config.PostgresConfig) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) EnsureCollection(ctx context.Context, dim int) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return models.NewError(models.CollectionUnavailable, "failed to enable pgvector", err)
	}
	if _, err := s.db.ExecContext(ctx, createTableDDL(dim)); err != nil {
		return models.NewError(models.CollectionUnavailable, "failed to create points table", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS points_source_url_idx ON points (source_url)"); err != nil {
		return models.NewError(models.CollectionUnavailable, "failed to create source index", err)
	}
	return nil
}

// createTableDDL sizes the embedding column to the configured dimension.
func createTableDDL(dim int) string {
	if dim <= 0 {
		dim = models.DefaultDimension
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS points (
	id TEXT PRIMARY KEY,
	embedding vector(%d) NOT NULL,
	text TEXT NOT NULL,
	title TEXT,
	source_url TEXT NOT NULL,
	chunk_index BIGINT,
	total_chunks BIGINT,
	created_at TEXT,
	page_number BIGINT
)`, dim)
}

func (s *Store) UpsertBatch(ctx context.Context, points []models.Point) error {
	if len(points) == 0 {
		return nil
	}
	rows := make([]PointRow, len(points))
	for i, p := range points {
		rows[i] = PointRow{
			ID:          p.ID,
			Embedding:   p.Vector,
			Text:        p.Payload.Text,
			Title:       p.Payload.Title,
			SourceURL:   p.Payload.SourceURL,
			ChunkIndex:  p.Payload.ChunkIndex,
			TotalChunks: p.Payload.TotalChunks,
			CreatedAt:   p.Payload.CreatedAt,
			PageNumber:  p.Payload.PageNumber,
		}
	}
	// Point IDs are freshly generated per ingestion run, so a replayed
	// batch can only collide with itself.
	_, err := s.db.NewInsert().Model(&rows).On("CONFLICT (id) DO NOTHING").Exec(ctx)
	if err != nil {
		return models.NewError(models.CollectionUnavailable, "point insert failed", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, sourceURL string, limit int) ([]models.ScoredPoint, error) {
	if limit <= 0 {
		limit = models.DefaultTopK
	}
	literal := vectorLiteral(vector)
	var rows []PointRow
	q := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("p.*").
		ColumnExpr("embedding <=> ?::vector AS distance", literal).
		OrderExpr("embedding <=> ?::vector", literal).
		Limit(limit)
	if sourceURL != "" {
		q = q.Where("source_url = ?", sourceURL)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, models.NewError(models.CollectionUnavailable, "similarity query failed", err)
	}
	hits := make([]models.ScoredPoint, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, models.ScoredPoint{
			Point: models.Point{
				ID: r.ID,
				Payload: models.Payload{
					Text:        r.Text,
					Title:       r.Title,
					SourceURL:   r.SourceURL,
					ChunkIndex:  r.ChunkIndex,
					TotalChunks: r.TotalChunks,
					CreatedAt:   r.CreatedAt,
					PageNumber:  r.PageNumber,
				},
			},
			// Cosine distance to similarity.
			Score: 1 - r.Distance,
		})
	}
	return hits, nil
}

func (s *Store) DeleteBySource(ctx context.Context, sourceURL string) (int, error) {
	res, err := s.db.NewDelete().
		Model((*PointRow)(nil)).
		Where("source_url = ?", sourceURL).
		Exec(ctx)
	if err != nil {
		return 0, models.NewError(models.CollectionUnavailable, "delete failed", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
