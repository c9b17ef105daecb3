package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/surveyops/backend/internal/model"
)

type pgMessageRepository struct {
	pool *pgxpool.Pool
}

// NewPgMessageRepository returns a PostgreSQL-backed MessageRepository.
func NewPgMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &pgMessageRepository{pool: pool}
}

func (r *pgMessageRepository) Insert(ctx context.Context, m *model.Message) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO messages (project_id, sender_id, sender_name, sender_role, body, is_internal, source)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		m.ProjectID, m.SenderID, m.SenderName, m.SenderRole, m.Body, m.IsInternal, m.Source,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *pgMessageRepository) ListByProject(ctx context.Context, projectID string, includeInternal bool) ([]*model.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, COALESCE(sender_id::text, ''), sender_name, sender_role,
		        body, is_internal, source, created_at
		 FROM messages
		 WHERE project_id = $1 AND ($2 OR NOT is_internal)
		 ORDER BY created_at, id`,
		projectID, includeInternal,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.Message
	for rows.Next() {
		m := &model.Message{}
		if err := rows.Scan(
			&m.ID, &m.ProjectID, &m.SenderID, &m.SenderName, &m.SenderRole,
			&m.Body, &m.IsInternal, &m.Source, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
