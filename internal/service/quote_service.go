package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/surveyops/backend/internal/model"
	"github.com/surveyops/backend/internal/notifier"
	"github.com/surveyops/backend/internal/repository"
)

// DefaultExchangeRate は JMD → USD の既定レート（EXCHANGE_RATE で上書き可能）
const DefaultExchangeRate = 157.0

// GenerateQuoteInput は見積もり作成の入力
type GenerateQuoteInput struct {
	Items []model.LineItemInput `json:"items"`

	// 着手費用（JMD）。負値は 0 として小計に加算される
	SiteClearance float64 `json:"site_clearance"`
	Mobilization  float64 `json:"mobilization"`
	Accommodation float64 `json:"accommodation"`

	Discount          float64 `json:"discount"`
	PrepaymentPercent float64 `json:"prepayment_percent"`
}

// QuoteService は見積もりの作成・承認・辞退を提供する
type QuoteService interface {
	Generate(ctx context.Context, projectID string, input GenerateQuoteInput) (*model.Project, error)
	Accept(ctx context.Context, projectID string) (*model.Project, error)
	Reject(ctx context.Context, projectID string, reason string) (*model.Project, error)
}

type QuoteServiceImpl struct {
	projectRepo  repository.ProjectRepository
	lineItemRepo repository.LineItemRepository
	messageRepo  repository.MessageRepository
	activity     ActivityService
	notify       notifier.Notifier
	cfg          notifier.Config
	exchangeRate float64
}

func NewQuoteService(
	projectRepo repository.ProjectRepository,
	lineItemRepo repository.LineItemRepository,
	messageRepo repository.MessageRepository,
	activity ActivityService,
	notify notifier.Notifier,
	cfg notifier.Config,
	exchangeRate float64,
) *QuoteServiceImpl {
	if exchangeRate <= 0 {
		exchangeRate = DefaultExchangeRate
	}
	return &QuoteServiceImpl{
		projectRepo:  projectRepo,
		lineItemRepo: lineItemRepo,
		messageRepo:  messageRepo,
		activity:     activity,
		notify:       notify,
		cfg:          cfg,
		exchangeRate: exchangeRate,
	}
}

// Generate は見積もりを作成し、案件を quoted へ遷移させる（スタッフのみ）。
// プロジェクト行と明細の2段階書き込みで、明細の書き込みに失敗した場合は
// プロジェクト行を元の状態に戻す補償処理を行う。
func (s *QuoteServiceImpl) Generate(ctx context.Context, projectID string, input GenerateQuoteInput) (*model.Project, error) {
	actor, err := requireStaff(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	// 発行済み見積もりの二重生成は拒否する
	if p.Status == model.StatusQuoted && p.QuotedAt != nil {
		return nil, ErrQuoteAlreadyGenerated
	}
	if !p.Status.CanTransitionTo(model.StatusQuoted) {
		return nil, &ErrInvalidTransition{From: p.Status, To: model.StatusQuoted}
	}

	items, fields, err := s.compute(projectID, input)
	if err != nil {
		return nil, err
	}

	oldStatus, oldQuotedAt := p.Status, p.QuotedAt
	if err := s.projectRepo.ApplyQuote(ctx, projectID, oldStatus, fields); err != nil {
		return nil, casConflict(err)
	}
	if err := s.lineItemRepo.ReplaceAll(ctx, projectID, items); err != nil {
		// 明細が書けなかったので見積もり前の状態へ戻す
		if revertErr := s.projectRepo.RevertQuote(ctx, projectID, oldStatus, oldQuotedAt); revertErr != nil {
			return nil, revertErr
		}
		return nil, err
	}

	act := &model.Activity{
		ProjectID: projectID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Action:    model.ActionQuoteGenerated,
		OldValue:  string(oldStatus),
		NewValue:  string(model.StatusQuoted),
		Detail: map[string]any{
			"total":      fields.Total,
			"item_count": len(items),
		},
	}
	s.activity.Record(ctx, act)
	systemMessage(ctx, s.messageRepo, projectID,
		fmt.Sprintf("お見積もりを発行しました / Quote issued: JMD %.2f", fields.Total))

	subject, body := notifier.QuoteReady(s.cfg, p.ID, displayName(p), fields.Total)
	s.notify.Enqueue(notifier.Event{
		ProjectID:   p.ID,
		ProjectName: displayName(p),
		ClientEmail: p.ClientEmail,
		ActorEmail:  actor.Email,
		Subject:     subject,
		HTML:        body,
		SourceID:    act.ID,
	})

	return s.projectRepo.GetByID(ctx, projectID)
}

// compute は入力をサニタイズして明細と金額フィールドを計算する
func (s *QuoteServiceImpl) compute(projectID string, input GenerateQuoteInput) ([]*model.LineItem, repository.QuoteFields, error) {
	var items []*model.LineItem
	var subtotal float64
	for _, in := range input.Items {
		desc := strings.TrimSpace(in.Description)
		if desc == "" {
			continue // 説明のない行は捨てる
		}
		qty := math.Max(in.Quantity, 0)
		price := math.Max(in.UnitPrice, 0)
		total := qty * price
		items = append(items, &model.LineItem{
			ProjectID:   projectID,
			Description: desc,
			Quantity:    qty,
			UnitPrice:   price,
			Unit:        strings.TrimSpace(in.Unit),
			Total:       total,
			Category:    strings.TrimSpace(in.Category),
			SortOrder:   len(items),
		})
		subtotal += total
	}

	// 着手費用は端数を含めそのまま加算する（負値のみ 0 に丸める）
	subtotal += math.Max(input.SiteClearance, 0)
	subtotal += math.Max(input.Mobilization, 0)
	subtotal += math.Max(input.Accommodation, 0)

	discount := math.Min(math.Max(input.Discount, 0), subtotal)
	total := subtotal - discount
	if total <= 0 {
		return nil, repository.QuoteFields{}, validationError("quote total must be positive")
	}

	prepayPct := math.Min(math.Max(input.PrepaymentPercent, 0), 100)
	prepay := total * prepayPct / 100

	fields := repository.QuoteFields{
		Subtotal:          subtotal,
		Discount:          discount,
		Total:             total,
		TotalUSD:          total / s.exchangeRate,
		PrepaymentPercent: prepayPct,
		PrepaymentAmount:  prepay,
		BalancePercent:    100 - prepayPct,
		BalanceAmount:     total - prepay,
	}
	return items, fields, nil
}

// Accept は見積もりを承認する。quoted の案件のみ対象で、承認時刻を記録する。
// クライアントは自分の案件のみ承認できる。
func (s *QuoteServiceImpl) Accept(ctx context.Context, projectID string) (*model.Project, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !canAccessProject(actor, p.ClientID) {
		return nil, ErrForbidden
	}
	if !p.Status.CanTransitionTo(model.StatusQuoteAccepted) {
		return nil, &ErrInvalidTransition{From: p.Status, To: model.StatusQuoteAccepted}
	}

	if err := s.projectRepo.UpdateStatus(ctx, projectID, p.Status, model.StatusQuoteAccepted); err != nil {
		return nil, casConflict(err)
	}

	act := &model.Activity{
		ProjectID: projectID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Action:    model.ActionQuoteAccepted,
		OldValue:  string(p.Status),
		NewValue:  string(model.StatusQuoteAccepted),
	}
	s.activity.Record(ctx, act)
	systemMessage(ctx, s.messageRepo, projectID,
		"お見積もりが承認されました / Quote accepted")

	subject, body := notifier.QuoteDecision(s.cfg, p.ID, displayName(p), true, "")
	s.notify.Enqueue(notifier.Event{
		ProjectID:   p.ID,
		ProjectName: displayName(p),
		ClientEmail: p.ClientEmail,
		ActorEmail:  actor.Email,
		Subject:     subject,
		HTML:        body,
		SourceID:    act.ID,
	})

	return s.projectRepo.GetByID(ctx, projectID)
}

// Reject は見積もりを辞退する。理由は任意。
// 終端状態でなければどの状態からでも受け付ける（承認後の翻意も許す）。
func (s *QuoteServiceImpl) Reject(ctx context.Context, projectID string, reason string) (*model.Project, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !canAccessProject(actor, p.ClientID) {
		return nil, ErrForbidden
	}
	if p.Status.Terminal() {
		return nil, &ErrInvalidTransition{From: p.Status, To: model.StatusQuoteRejected}
	}

	if err := s.projectRepo.UpdateStatus(ctx, projectID, p.Status, model.StatusQuoteRejected); err != nil {
		return nil, casConflict(err)
	}

	act := &model.Activity{
		ProjectID: projectID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Action:    model.ActionQuoteRejected,
		OldValue:  string(p.Status),
		NewValue:  string(model.StatusQuoteRejected),
		Detail:    detailIf("reason", reason),
	}
	s.activity.Record(ctx, act)
	systemMessage(ctx, s.messageRepo, projectID,
		"お見積もりが辞退されました / Quote declined")

	subject, body := notifier.QuoteDecision(s.cfg, p.ID, displayName(p), false, reason)
	s.notify.Enqueue(notifier.Event{
		ProjectID:   p.ID,
		ProjectName: displayName(p),
		ClientEmail: p.ClientEmail,
		ActorEmail:  actor.Email,
		Subject:     subject,
		HTML:        body,
		SourceID:    act.ID,
	})

	return s.projectRepo.GetByID(ctx, projectID)
}
