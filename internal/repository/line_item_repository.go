package repository

import (
	"context"

	"github.com/surveyops/backend/internal/model"
)

// LineItemRepository handles persistence for quote line items.
type LineItemRepository interface {
	// ListByProjectID returns the project's line items in sort order.
	ListByProjectID(ctx context.Context, projectID string) ([]*model.LineItem, error)
	// ReplaceAll deletes the project's existing line items and inserts the
	// given set. Individual items are never patched.
	ReplaceAll(ctx context.Context, projectID string, items []*model.LineItem) error
}
