package storage

import (
	"context"

	"qrlsim/internal/model"
)

// Store persists completed run records.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, record model.RunRecord) error
	GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error)
	// ListRuns returns records newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
}
