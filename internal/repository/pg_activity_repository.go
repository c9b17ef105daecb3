package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/surveyops/backend/internal/model"
)

type pgActivityRepository struct {
	pool *pgxpool.Pool
}

// NewPgActivityRepository returns a PostgreSQL-backed ActivityRepository.
func NewPgActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &pgActivityRepository{pool: pool}
}

func (r *pgActivityRepository) Insert(ctx context.Context, a *model.Activity) error {
	var detail []byte
	if a.Detail != nil {
		b, err := json.Marshal(a.Detail)
		if err != nil {
			return err
		}
		detail = b
	}
	// 生成された id は通知のイベント識別子として使うため呼び出し元に返す
	return r.pool.QueryRow(ctx,
		`INSERT INTO activities (project_id, actor_id, actor_name, actor_role, action, old_value, new_value, detail)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)
		 RETURNING id, created_at`,
		a.ProjectID, a.ActorID, a.ActorName, a.ActorRole, a.Action,
		a.OldValue, a.NewValue, detail,
	).Scan(&a.ID, &a.CreatedAt)
}

func (r *pgActivityRepository) ListByProject(ctx context.Context, projectID string) ([]*model.Activity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, COALESCE(actor_id::text, ''), actor_name, actor_role,
		        action, COALESCE(old_value, ''), COALESCE(new_value, ''), detail, created_at
		 FROM activities WHERE project_id = $1 ORDER BY created_at DESC, id DESC`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.Activity
	for rows.Next() {
		a := &model.Activity{}
		var detail []byte
		if err := rows.Scan(
			&a.ID, &a.ProjectID, &a.ActorID, &a.ActorName, &a.ActorRole,
			&a.Action, &a.OldValue, &a.NewValue, &detail, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &a.Detail)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
