package service

import (
	"context"
	"log/slog"

	"github.com/surveyops/backend/internal/model"
	"github.com/surveyops/backend/internal/repository"
)

// ActivityService は監査ログの記録を提供する
type ActivityService interface {
	// Record appends one audit entry. Failures are logged, never
	// propagated: an audit miss must not roll back the action it records.
	Record(ctx context.Context, activity *model.Activity)
	ListByProject(ctx context.Context, projectID string) ([]*model.Activity, error)
}

type ActivityServiceImpl struct {
	activityRepo repository.ActivityRepository
}

func NewActivityService(activityRepo repository.ActivityRepository) *ActivityServiceImpl {
	return &ActivityServiceImpl{activityRepo: activityRepo}
}

// Record は監査エントリを追記する
func (s *ActivityServiceImpl) Record(ctx context.Context, activity *model.Activity) {
	if err := s.activityRepo.Insert(ctx, activity); err != nil {
		slog.Error("failed to record activity",
			"project_id", activity.ProjectID, "action", activity.Action, "error", err)
	}
}

// ListByProject は案件の監査ログを新しい順に返す
func (s *ActivityServiceImpl) ListByProject(ctx context.Context, projectID string) ([]*model.Activity, error) {
	return s.activityRepo.ListByProject(ctx, projectID)
}
