package repository

import (
	"context"

	"github.com/surveyops/backend/internal/model"
)

// MessageRepository handles persistence for project thread messages.
type MessageRepository interface {
	Insert(ctx context.Context, m *model.Message) error
	// ListByProject returns messages oldest first. Internal messages are
	// excluded unless includeInternal is true.
	ListByProject(ctx context.Context, projectID string, includeInternal bool) ([]*model.Message, error)
}
