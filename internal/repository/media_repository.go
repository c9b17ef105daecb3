package repository

import (
	"context"

	"github.com/surveyops/backend/internal/model"
)

// MediaRepository handles the registry of uploaded objects.
type MediaRepository interface {
	Insert(ctx context.Context, m *model.Media) error
	GetByID(ctx context.Context, id string) (*model.Media, error)
	ListByProject(ctx context.Context, projectID string) ([]*model.Media, error)
	Delete(ctx context.Context, id string) error
}
