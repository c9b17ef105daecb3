package repository

import (
	"context"
	"time"

	"github.com/surveyops/backend/internal/model"
)

// QuoteFields は見積確定時にプロジェクト行へ書き込む金額フィールド一式
type QuoteFields struct {
	Subtotal          float64
	Discount          float64
	Total             float64
	TotalUSD          float64
	PrepaymentPercent float64
	PrepaymentAmount  float64
	BalancePercent    float64
	BalanceAmount     float64
}

// ProjectRepository はプロジェクト永続化のインターフェース
type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	List(ctx context.Context) ([]*model.Project, error)
	ListByClientID(ctx context.Context, clientID string) ([]*model.Project, error)
	// UpdateStatus moves the project from expected to next in a single
	// compare-and-set statement, stamping the milestone column implied by
	// next. Returns ErrNotFound when the row no longer holds expected.
	UpdateStatus(ctx context.Context, id string, expected, next model.Status) error
	// ApplyQuote writes the computed quote fields and moves the project to
	// quoted with quoted_at=now, guarded on the expected current status.
	ApplyQuote(ctx context.Context, id string, expected model.Status, f QuoteFields) error
	// RevertQuote restores status and quoted_at after a failed line-item
	// write. Compensating action, not guarded.
	RevertQuote(ctx context.Context, id string, status model.Status, quotedAt *time.Time) error
	SetFeatured(ctx context.Context, id string, featured bool) error
}
