// Package store persists analysis runs with their cluster and neighborhood
// tables in SQLite or Postgres.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/Shodexco/airbnb-hotspot-analyzer/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	City   string          `json:"city,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// DefaultListLimit caps ListRuns when RunFilter.Limit is unset.
const DefaultListLimit = 100

// Store persists analysis runs.
type Store interface {
	// SaveRun inserts run with its clusters and neighborhoods. An empty ID
	// is replaced by a new UUID and a zero CreatedAt by the current time.
	SaveRun(ctx context.Context, run *model.Run) error
	// GetRun loads a run with its clusters and neighborhoods.
	GetRun(ctx context.Context, id string) (*model.Run, error)
	// LatestRun loads the most recent complete run of city.
	LatestRun(ctx context.Context, city string) (*model.Run, error)
	// ListRuns returns run headers, newest first, without detail tables.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// prepare fills in the ID, creation time and status of a run about to be
// saved.
func prepare(run *model.Run) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = model.RunStatusComplete
	}
}

func limitOf(f RunFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
