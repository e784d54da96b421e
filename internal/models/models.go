package models

import "time"

// Chunk represents a contiguous slice of a source document produced by the
// chunker. Chunks live in memory only; once embedded they are persisted as
// vector points and discarded.
type Chunk struct {
	Text        string
	Index       int
	TotalChunks int
	PageNumber  *int
	SourceURL   string
	Title       string
	CreatedAt   time.Time
}

// Payload is the metadata stored alongside each vector in the store.
// SourceURL groups every point belonging to one logical document.
type Payload struct {
	Text        string `json:"text"`
	Title       string `json:"title"`
	SourceURL   string `json:"sourceUrl"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
	CreatedAt   string `json:"createdAt"`
	PageNumber  *int   `json:"pageNumber,omitempty"`
}

// Point is the persisted unit in the vector store.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// ScoredPoint is a search hit with its similarity score.
type ScoredPoint struct {
	Point
	Score float64
}

// ChatTurn is one prior message of the conversation folded into the prompt.
type ChatTurn struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// Source is a citation attached to a generated answer.
type Source struct {
	Text       string  `json:"text"`
	SourceURL  string  `json:"sourceUrl"`
	PageNumber *int    `json:"pageNumber,omitempty"`
	Score      float64 `json:"score"`
}

// QueryResponse is the result of one answered question.
type QueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// IngestResult reports what one document ingestion wrote.
type IngestResult struct {
	SourceURL     string `json:"sourceUrl"`
	Title         string `json:"title"`
	PointsWritten int    `json:"pointsWritten"`
}

// StageOutcome is the per-stage record of a best-effort deletion run.
type StageOutcome struct {
	Stage   string `json:"stage"`
	Success bool   `json:"success"`
	Deleted int    `json:"deleted,omitempty"`
	Error   string `json:"error,omitempty"`
}

// DeleteReport aggregates the outcomes of a multi-stage delete. Partial
// failure does not abort later stages.
type DeleteReport struct {
	SourceURL string         `json:"sourceUrl"`
	Stages    []StageOutcome `json:"stages"`
}

// AllSucceeded reports whether every stage of the delete completed.
func (r *DeleteReport) AllSucceeded() bool {
	for _, s := range r.Stages {
		if !s.Success {
			return false
		}
	}
	return true
}
