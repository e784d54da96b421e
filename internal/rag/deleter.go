package rag

import (
	"context"

	"github.com/rs/zerolog/log"

	"docqa/internal/models"
	"docqa/internal/vectorstore"
)

// Stage is one step of a document deletion: remove the document's traces
// from a single external system and report how many records went away.
type Stage struct {
	Name string
	Run  func(ctx context.Context, sourceURL string) (int, error)
}

// Deleter removes a document from every system that knows about it,
// best-effort: a failed stage is recorded and the remaining stages still
// run. The stages touch independently-available external systems with no
// shared transaction coordinator, so partial success with a transparent
// report beats all-or-nothing.
type Deleter struct {
	stages []Stage
}

// NewDeleter builds a deleter whose first stage removes the vector points.
// Callers append stages for their own collaborators (relational records,
// blob storage).
func NewDeleter(store vectorstore.Store, extra ...Stage) *Deleter {
	stages := []Stage{{
		Name: "vector_store",
		Run:  store.DeleteBySource,
	}}
	stages = append(stages, extra...)
	return &Deleter{stages: stages}
}

// Delete runs every stage in order and aggregates per-stage outcomes.
func (d *Deleter) Delete(ctx context.Context, sourceURL string) *models.DeleteReport {
	report := &models.DeleteReport{SourceURL: sourceURL}
	for _, stage := range d.stages {
		deleted, err := stage.Run(ctx, sourceURL)
		outcome := models.StageOutcome{Stage: stage.Name, Success: err == nil, Deleted: deleted}
		if err != nil {
			outcome.Error = err.Error()
			log.Warn().Err(err).Str("stage", stage.Name).Str("sourceUrl", sourceURL).Msg("delete stage failed, continuing")
		}
		report.Stages = append(report.Stages, outcome)
	}
	return report
}
