package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/surveyops/backend/internal/model"
)

type pgLineItemRepository struct {
	pool *pgxpool.Pool
}

// NewPgLineItemRepository returns a PostgreSQL-backed LineItemRepository.
func NewPgLineItemRepository(pool *pgxpool.Pool) LineItemRepository {
	return &pgLineItemRepository{pool: pool}
}

func (r *pgLineItemRepository) ListByProjectID(ctx context.Context, projectID string) ([]*model.LineItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, description, quantity, unit_price, unit, total,
		        COALESCE(category, ''), sort_order, created_at
		 FROM line_items WHERE project_id = $1 ORDER BY sort_order, created_at`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.LineItem
	for rows.Next() {
		var item model.LineItem
		if err := rows.Scan(
			&item.ID, &item.ProjectID, &item.Description, &item.Quantity,
			&item.UnitPrice, &item.Unit, &item.Total, &item.Category,
			&item.SortOrder, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// ReplaceAll は既存の明細を全削除して items を挿入する。
// この2テーブル間の整合はトランザクションで守るが、projects 行との整合は
// 呼び出し側（見積エンジン）の補償処理に委ねる。
func (r *pgLineItemRepository) ReplaceAll(ctx context.Context, projectID string, items []*model.LineItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM line_items WHERE project_id=$1`, projectID); err != nil {
		return err
	}

	for i, item := range items {
		item.ProjectID = projectID
		item.SortOrder = i
		if err := tx.QueryRow(ctx,
			`INSERT INTO line_items (project_id, description, quantity, unit_price, unit, total, category, sort_order)
			 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
			 RETURNING id, created_at`,
			projectID, item.Description, item.Quantity, item.UnitPrice,
			item.Unit, item.Total, item.Category, i,
		).Scan(&item.ID, &item.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
