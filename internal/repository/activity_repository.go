package repository

import (
	"context"

	"github.com/surveyops/backend/internal/model"
)

// ActivityRepository handles persistence for the append-only audit trail.
// There is deliberately no update or delete: rows are immutable facts.
type ActivityRepository interface {
	// Insert appends one audit fact.
	Insert(ctx context.Context, a *model.Activity) error
	// ListByProject returns the project's audit trail, newest first.
	ListByProject(ctx context.Context, projectID string) ([]*model.Activity, error)
}
