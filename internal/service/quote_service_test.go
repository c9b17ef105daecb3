package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/surveyops/backend/internal/model"
	"github.com/surveyops/backend/internal/notifier"
	"github.com/surveyops/backend/internal/repository"
)

type quoteFixture struct {
	svc          *QuoteServiceImpl
	projectRepo  *mockProjectRepo
	lineItemRepo *mockLineItemRepo
	activity     *recordingActivity
	notify       *recordingNotifier
	messages     []*model.Message
}

func newQuoteFixture(p *model.Project) *quoteFixture {
	f := &quoteFixture{
		activity: &recordingActivity{},
		notify:   &recordingNotifier{},
	}
	f.projectRepo = &mockProjectRepo{
		GetByIDFunc: func(_ context.Context, _ string) (*model.Project, error) { return p, nil },
		ApplyQuoteFunc: func(_ context.Context, _ string, _ model.Status, _ repository.QuoteFields) error {
			return nil
		},
		RevertQuoteFunc: func(_ context.Context, _ string, _ model.Status, _ *time.Time) error {
			return nil
		},
		UpdateStatusFunc: func(_ context.Context, _ string, _, _ model.Status) error { return nil },
	}
	f.lineItemRepo = &mockLineItemRepo{
		ReplaceAllFunc: func(_ context.Context, _ string, _ []*model.LineItem) error { return nil },
	}
	messageRepo := &mockMessageRepo{
		InsertFunc: func(_ context.Context, m *model.Message) error {
			f.messages = append(f.messages, m)
			return nil
		},
	}
	f.svc = NewQuoteService(f.projectRepo, f.lineItemRepo, messageRepo,
		f.activity, f.notify, notifier.Config{}, 157.0)
	return f
}

func underReviewProject() *model.Project {
	return &model.Project{
		ID:          "p-1",
		ClientID:    "client-1",
		ClientName:  "Marcus Brown",
		ClientEmail: "marcus@example.com",
		Parish:      "St. Andrew",
		SurveyType:  "boundary",
		Status:      model.StatusUnderReview,
	}
}

func TestGenerateQuoteComputesTotals(t *testing.T) {
	p := underReviewProject()
	f := newQuoteFixture(p)

	var applied repository.QuoteFields
	f.projectRepo.ApplyQuoteFunc = func(_ context.Context, _ string, expected model.Status, fields repository.QuoteFields) error {
		if expected != model.StatusUnderReview {
			t.Errorf("ApplyQuote guard = %s, want under_review", expected)
		}
		applied = fields
		return nil
	}

	_, err := f.svc.Generate(staffCtx(), "p-1", GenerateQuoteInput{
		Items: []model.LineItemInput{
			{Description: "Boundary survey", Quantity: 2, UnitPrice: 50000},
			{Description: "  ", Quantity: 1, UnitPrice: 99999},   // 説明なしは捨てられる
			{Description: "Pillar install", Quantity: -3, UnitPrice: 1000}, // 負の数量は 0 扱い
		},
		SiteClearance:     10000.5, // 端数もそのまま加算される
		Mobilization:      4999.5,
		Accommodation:     -200, // 負値は 0
		Discount:          15000,
		PrepaymentPercent: 60,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// subtotal = 2*50000 + 0 + 10000.5 + 4999.5 = 115000
	if applied.Subtotal != 115000 {
		t.Errorf("Subtotal = %v, want 115000", applied.Subtotal)
	}
	if applied.Discount != 15000 {
		t.Errorf("Discount = %v, want 15000", applied.Discount)
	}
	if applied.Total != 100000 {
		t.Errorf("Total = %v, want 100000", applied.Total)
	}
	if math.Abs(applied.TotalUSD-100000/157.0) > 1e-9 {
		t.Errorf("TotalUSD = %v, want %v", applied.TotalUSD, 100000/157.0)
	}
	if applied.PrepaymentAmount != 60000 || applied.BalanceAmount != 40000 {
		t.Errorf("Prepayment/Balance = %v/%v, want 60000/40000",
			applied.PrepaymentAmount, applied.BalanceAmount)
	}
	if applied.PrepaymentPercent != 60 || applied.BalancePercent != 40 {
		t.Errorf("percents = %v/%v, want 60/40", applied.PrepaymentPercent, applied.BalancePercent)
	}

	if len(f.activity.recorded) != 1 || f.activity.recorded[0].Action != model.ActionQuoteGenerated {
		t.Fatalf("expected one quote_generated activity, got %+v", f.activity.recorded)
	}
	if f.activity.recorded[0].Detail["item_count"] != 2 {
		t.Errorf("item_count = %v, want 2", f.activity.recorded[0].Detail["item_count"])
	}
	if len(f.messages) != 1 || f.messages[0].Source != model.MessageSourceSystem {
		t.Fatalf("expected one system message, got %+v", f.messages)
	}
	if len(f.notify.events) != 1 || f.notify.events[0].SourceID != f.activity.recorded[0].ID {
		t.Errorf("notification should carry the audit entry id, got %+v", f.notify.events)
	}
}

// 着手費用は小数のまま合計に反映される
func TestGenerateQuoteKeepsFractionalInitiationCosts(t *testing.T) {
	p := underReviewProject()
	f := newQuoteFixture(p)

	var applied repository.QuoteFields
	f.projectRepo.ApplyQuoteFunc = func(_ context.Context, _ string, _ model.Status, fields repository.QuoteFields) error {
		applied = fields
		return nil
	}

	_, err := f.svc.Generate(staffCtx(), "p-1", GenerateQuoteInput{
		Items:         []model.LineItemInput{{Description: "Survey", Quantity: 1, UnitPrice: 100000}},
		SiteClearance: 10000.9,
		Mobilization:  5000.5,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if want := 115001.4; math.Abs(applied.Subtotal-want) > 1e-9 {
		t.Errorf("Subtotal = %v, want %v", applied.Subtotal, want)
	}
	if math.Abs(applied.Total-115001.4) > 1e-9 {
		t.Errorf("Total = %v, want 115001.4", applied.Total)
	}
}

func TestGenerateQuoteClampsInputs(t *testing.T) {
	p := underReviewProject()
	f := newQuoteFixture(p)

	var applied repository.QuoteFields
	f.projectRepo.ApplyQuoteFunc = func(_ context.Context, _ string, _ model.Status, fields repository.QuoteFields) error {
		applied = fields
		return nil
	}

	_, err := f.svc.Generate(staffCtx(), "p-1", GenerateQuoteInput{
		Items:             []model.LineItemInput{{Description: "Survey", Quantity: 1, UnitPrice: 1000}},
		Discount:          999999, // 小計を超える割引は小計まで…ただし合計 0 は拒否
		PrepaymentPercent: 150,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for zero total, got %v", err)
	}

	_, err = f.svc.Generate(staffCtx(), "p-1", GenerateQuoteInput{
		Items:             []model.LineItemInput{{Description: "Survey", Quantity: 1, UnitPrice: 1000}},
		Discount:          -50, // 負の割引は 0
		PrepaymentPercent: 150, // 100 に丸める
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if applied.Discount != 0 {
		t.Errorf("Discount = %v, want 0", applied.Discount)
	}
	if applied.PrepaymentPercent != 100 || applied.BalancePercent != 0 {
		t.Errorf("percents = %v/%v, want 100/0", applied.PrepaymentPercent, applied.BalancePercent)
	}
}

func TestGenerateQuoteRejectsDuplicate(t *testing.T) {
	quotedAt := time.Now()
	p := underReviewProject()
	p.Status = model.StatusQuoted
	p.QuotedAt = &quotedAt
	f := newQuoteFixture(p)

	_, err := f.svc.Generate(staffCtx(), "p-1", GenerateQuoteInput{
		Items: []model.LineItemInput{{Description: "Survey", Quantity: 1, UnitPrice: 1000}},
	})
	if !errors.Is(err, ErrQuoteAlreadyGenerated) {
		t.Fatalf("expected ErrQuoteAlreadyGenerated, got %v", err)
	}
}

func TestGenerateQuoteRevertsOnLineItemFailure(t *testing.T) {
	p := underReviewProject()
	f := newQuoteFixture(p)

	reverted := false
	f.projectRepo.RevertQuoteFunc = func(_ context.Context, id string, status model.Status, quotedAt *time.Time) error {
		reverted = true
		if status != model.StatusUnderReview {
			t.Errorf("RevertQuote status = %s, want under_review", status)
		}
		if quotedAt != nil {
			t.Errorf("RevertQuote quotedAt = %v, want nil", quotedAt)
		}
		return nil
	}
	f.lineItemRepo.ReplaceAllFunc = func(_ context.Context, _ string, _ []*model.LineItem) error {
		return errors.New("disk full")
	}

	_, err := f.svc.Generate(staffCtx(), "p-1", GenerateQuoteInput{
		Items: []model.LineItemInput{{Description: "Survey", Quantity: 1, UnitPrice: 1000}},
	})
	if err == nil {
		t.Fatal("expected error from failed line item write")
	}
	if !reverted {
		t.Fatal("expected project row to be reverted after line item failure")
	}
	if len(f.activity.recorded) != 0 {
		t.Errorf("no activity should be recorded on failure, got %+v", f.activity.recorded)
	}
	if len(f.messages) != 0 {
		t.Errorf("no system message should be posted on failure, got %+v", f.messages)
	}
}

func TestGenerateQuoteRequiresStaff(t *testing.T) {
	p := underReviewProject()
	f := newQuoteFixture(p)

	_, err := f.svc.Generate(clientCtx("client-1"), "p-1", GenerateQuoteInput{})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	_, err = f.svc.Generate(context.Background(), "p-1", GenerateQuoteInput{})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAcceptQuote(t *testing.T) {
	p := underReviewProject()
	p.Status = model.StatusQuoted
	f := newQuoteFixture(p)

	var gotExpected, gotNext model.Status
	f.projectRepo.UpdateStatusFunc = func(_ context.Context, _ string, expected, next model.Status) error {
		gotExpected, gotNext = expected, next
		return nil
	}

	if _, err := f.svc.Accept(clientCtx("client-1"), "p-1"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if gotExpected != model.StatusQuoted || gotNext != model.StatusQuoteAccepted {
		t.Errorf("UpdateStatus(%s -> %s), want quoted -> quote_accepted", gotExpected, gotNext)
	}
	if len(f.activity.recorded) != 1 || f.activity.recorded[0].Action != model.ActionQuoteAccepted {
		t.Fatalf("expected quote_accepted activity, got %+v", f.activity.recorded)
	}
	if len(f.messages) != 1 || f.messages[0].Source != model.MessageSourceSystem {
		t.Fatalf("expected one system message, got %+v", f.messages)
	}
	if len(f.notify.events) != 1 {
		t.Fatalf("expected one notification, got %d", len(f.notify.events))
	}
	if f.notify.events[0].SourceID != f.activity.recorded[0].ID {
		t.Errorf("SourceID = %q, want %q", f.notify.events[0].SourceID, f.activity.recorded[0].ID)
	}
}

func TestAcceptQuoteWrongStatus(t *testing.T) {
	p := underReviewProject() // under_review からの承認は不可
	f := newQuoteFixture(p)

	_, err := f.svc.Accept(clientCtx("client-1"), "p-1")
	var transition *ErrInvalidTransition
	if !errors.As(err, &transition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if transition.From != model.StatusUnderReview || transition.To != model.StatusQuoteAccepted {
		t.Errorf("transition = %s -> %s", transition.From, transition.To)
	}
}

func TestAcceptQuoteForeignClient(t *testing.T) {
	p := underReviewProject()
	p.Status = model.StatusQuoted
	f := newQuoteFixture(p)

	_, err := f.svc.Accept(clientCtx("someone-else"), "p-1")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAcceptQuoteConcurrentConflict(t *testing.T) {
	p := underReviewProject()
	p.Status = model.StatusQuoted
	f := newQuoteFixture(p)

	f.projectRepo.UpdateStatusFunc = func(_ context.Context, _ string, _, _ model.Status) error {
		return repository.ErrNotFound // 競合で 0 行更新
	}

	_, err := f.svc.Accept(clientCtx("client-1"), "p-1")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRejectQuoteRecordsReason(t *testing.T) {
	p := underReviewProject()
	p.Status = model.StatusQuoted
	f := newQuoteFixture(p)

	f.projectRepo.UpdateStatusFunc = func(_ context.Context, _ string, _, next model.Status) error {
		if next != model.StatusQuoteRejected {
			t.Errorf("next = %s, want quote_rejected", next)
		}
		return nil
	}

	if _, err := f.svc.Reject(clientCtx("client-1"), "p-1", "too expensive"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if len(f.activity.recorded) != 1 {
		t.Fatalf("expected one activity, got %d", len(f.activity.recorded))
	}
	if f.activity.recorded[0].Detail["reason"] != "too expensive" {
		t.Errorf("reason = %v", f.activity.recorded[0].Detail["reason"])
	}
	if len(f.messages) != 1 || f.messages[0].Source != model.MessageSourceSystem {
		t.Fatalf("expected one system message, got %+v", f.messages)
	}
}

// 辞退は見積もり提示後のどの状態からでもできる
func TestRejectQuoteFromLaterStatus(t *testing.T) {
	p := underReviewProject()
	p.Status = model.StatusInProgress
	f := newQuoteFixture(p)

	var gotExpected, gotNext model.Status
	f.projectRepo.UpdateStatusFunc = func(_ context.Context, _ string, expected, next model.Status) error {
		gotExpected, gotNext = expected, next
		return nil
	}

	if _, err := f.svc.Reject(clientCtx("client-1"), "p-1", ""); err != nil {
		t.Fatalf("Reject from in_progress: %v", err)
	}
	if gotExpected != model.StatusInProgress || gotNext != model.StatusQuoteRejected {
		t.Errorf("UpdateStatus(%s -> %s), want in_progress -> quote_rejected", gotExpected, gotNext)
	}
}

func TestRejectQuoteTerminalStatus(t *testing.T) {
	p := underReviewProject()
	p.Status = model.StatusCompleted
	f := newQuoteFixture(p)

	_, err := f.svc.Reject(clientCtx("client-1"), "p-1", "")
	var transition *ErrInvalidTransition
	if !errors.As(err, &transition) {
		t.Fatalf("expected ErrInvalidTransition from terminal state, got %v", err)
	}
	if transition.From != model.StatusCompleted {
		t.Errorf("From = %s, want completed", transition.From)
	}
}
