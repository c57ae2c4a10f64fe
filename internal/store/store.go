// Package store persists the history of collection runs.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/rjrizani/zyte-api-training/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Recipe string          `json:"recipe,omitempty"`
	Reason string          `json:"reason,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// NewRun describes a run about to start.
type NewRun struct {
	Recipe   string
	StartURL string
	Params   map[string]string
}

// Store defines the persistence interface for run history.
type Store interface {
	CreateRun(ctx context.Context, run NewRun) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, outcome model.RunOutcome) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	// ListRuns returns runs newest first, without their records.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
