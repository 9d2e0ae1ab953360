// Package store persists batch runs and the hand-off queue. Reconciliation
// decisions never read from it.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/taxon-cli/internal/model"
)

// ErrNotFound is returned when a run or hand-off does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	Dataset string          `json:"dataset,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// HandoffFilter specifies criteria for listing hand-offs.
type HandoffFilter struct {
	Status model.HandoffStatus `json:"status,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// Store defines the persistence interface for reconciliation runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, dataset string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, counts model.RunCounts) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Hand-offs. SaveHandoff is idempotent on (taxon_id, common_name): when
	// the pair is already queued it loads the existing row into h and
	// reports created=false.
	SaveHandoff(ctx context.Context, h *model.Handoff) (created bool, err error)
	GetHandoff(ctx context.Context, id string) (*model.Handoff, error)
	ListHandoffs(ctx context.Context, filter HandoffFilter) ([]model.Handoff, error)
	MarkHandoffSubmitted(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
