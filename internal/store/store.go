// Package store persists completed analysis runs. SQLite backs local CLI
// use; Postgres backs shared dashboard deployments.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/variance-cli/internal/model"
)

// ErrRunNotFound is returned by GetRun when no run matches the given ID.
var ErrRunNotFound = errors.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Source string `json:"source,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis run history.
type Store interface {
	// SaveRun persists a run; a missing ID or CreatedAt is filled in.
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
