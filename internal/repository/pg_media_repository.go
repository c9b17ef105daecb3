package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/surveyops/backend/internal/model"
)

type pgMediaRepository struct {
	pool *pgxpool.Pool
}

// NewPgMediaRepository returns a PostgreSQL-backed MediaRepository.
func NewPgMediaRepository(pool *pgxpool.Pool) MediaRepository {
	return &pgMediaRepository{pool: pool}
}

func (r *pgMediaRepository) Insert(ctx context.Context, m *model.Media) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO media (project_id, kind, storage_key, file_name, size_bytes, content_type, uploaded_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		m.ProjectID, m.Kind, m.StorageKey, m.FileName, m.SizeBytes, m.ContentType, m.UploadedBy,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *pgMediaRepository) GetByID(ctx context.Context, id string) (*model.Media, error) {
	var m model.Media
	err := r.pool.QueryRow(ctx,
		`SELECT id, project_id, kind, storage_key, file_name, size_bytes, content_type, uploaded_by, created_at
		 FROM media WHERE id = $1`, id,
	).Scan(&m.ID, &m.ProjectID, &m.Kind, &m.StorageKey, &m.FileName,
		&m.SizeBytes, &m.ContentType, &m.UploadedBy, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *pgMediaRepository) ListByProject(ctx context.Context, projectID string) ([]*model.Media, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, kind, storage_key, file_name, size_bytes, content_type, uploaded_by, created_at
		 FROM media WHERE project_id = $1 ORDER BY created_at DESC`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.Media
	for rows.Next() {
		m := &model.Media{}
		if err := rows.Scan(
			&m.ID, &m.ProjectID, &m.Kind, &m.StorageKey, &m.FileName,
			&m.SizeBytes, &m.ContentType, &m.UploadedBy, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *pgMediaRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
