package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/surveyops/backend/internal/model"
)

type pgProjectRepository struct {
	pool *pgxpool.Pool
}

// NewPgProjectRepository returns a PostgreSQL-backed ProjectRepository.
func NewPgProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &pgProjectRepository{pool: pool}
}

const projectColumns = `
	id, COALESCE(client_id::text, ''), client_name, client_email, COALESCE(client_phone, ''),
	parish, property_address, survey_type, COALESCE(description, ''), status,
	subtotal, discount, total, total_usd,
	prepayment_percent, prepayment_amount, balance_percent, balance_amount,
	quoted_at, accepted_at, completed_at,
	featured, featured_at, created_at, updated_at`

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID, &p.ClientID, &p.ClientName, &p.ClientEmail, &p.ClientPhone,
		&p.Parish, &p.PropertyAddress, &p.SurveyType, &p.Description, &p.Status,
		&p.Subtotal, &p.Discount, &p.Total, &p.TotalUSD,
		&p.PrepaymentPercent, &p.PrepaymentAmount, &p.BalancePercent, &p.BalanceAmount,
		&p.QuotedAt, &p.AcceptedAt, &p.CompletedAt,
		&p.Featured, &p.FeaturedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *pgProjectRepository) Create(ctx context.Context, p *model.Project) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO projects
			(client_id, client_name, client_email, client_phone,
			 parish, property_address, survey_type, description, status)
		 VALUES (NULLIF($1, '')::uuid, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		p.ClientID, p.ClientName, p.ClientEmail, p.ClientPhone,
		p.Parish, p.PropertyAddress, p.SurveyType, p.Description, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *pgProjectRepository) GetByID(ctx context.Context, id string) (*model.Project, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

func (r *pgProjectRepository) List(ctx context.Context) ([]*model.Project, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProjects(rows)
}

func (r *pgProjectRepository) ListByClientID(ctx context.Context, clientID string) ([]*model.Project, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE client_id = $1 ORDER BY created_at DESC`,
		clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProjects(rows)
}

func collectProjects(rows pgx.Rows) ([]*model.Project, error) {
	var projects []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateStatus は読み取り済みの expected をガードにした compare-and-set。
// 同時更新で expected が変わっていた場合は 0 行更新となり ErrNotFound を返す。
func (r *pgProjectRepository) UpdateStatus(ctx context.Context, id string, expected, next model.Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET
			status = $1,
			quoted_at    = CASE WHEN $1 = 'quoted'         THEN NOW() ELSE quoted_at END,
			accepted_at  = CASE WHEN $1 = 'quote_accepted' THEN NOW() ELSE accepted_at END,
			completed_at = CASE WHEN $1 = 'completed'      THEN NOW() ELSE completed_at END,
			updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		next, id, expected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgProjectRepository) ApplyQuote(ctx context.Context, id string, expected model.Status, f QuoteFields) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET
			status = 'quoted', quoted_at = NOW(),
			subtotal = $1, discount = $2, total = $3, total_usd = $4,
			prepayment_percent = $5, prepayment_amount = $6,
			balance_percent = $7, balance_amount = $8,
			updated_at = NOW()
		 WHERE id = $9 AND status = $10`,
		f.Subtotal, f.Discount, f.Total, f.TotalUSD,
		f.PrepaymentPercent, f.PrepaymentAmount,
		f.BalancePercent, f.BalanceAmount,
		id, expected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgProjectRepository) RevertQuote(ctx context.Context, id string, status model.Status, quotedAt *time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE projects SET status = $1, quoted_at = $2, updated_at = NOW() WHERE id = $3`,
		status, quotedAt, id)
	return err
}

func (r *pgProjectRepository) SetFeatured(ctx context.Context, id string, featured bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET
			featured = $1,
			featured_at = CASE WHEN $1 THEN COALESCE(featured_at, NOW()) ELSE NULL END,
			updated_at = NOW()
		 WHERE id = $2`,
		featured, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
