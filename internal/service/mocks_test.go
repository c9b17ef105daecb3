package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/surveyops/backend/internal/model"
	"github.com/surveyops/backend/internal/notifier"
	"github.com/surveyops/backend/internal/repository"
	"github.com/surveyops/backend/pkg/auth"
	"github.com/surveyops/backend/pkg/mailer"
)

// --- テスト用コンテキスト ---

func staffCtx() context.Context {
	return auth.WithActor(context.Background(),
		auth.Actor{ID: "staff-1", Name: "Aiko Tanaka", Email: "aiko@surveyops.example", Role: "staff"})
}

func clientCtx(id string) context.Context {
	return auth.WithActor(context.Background(),
		auth.Actor{ID: id, Name: "Marcus Brown", Email: "marcus@example.com", Role: "client"})
}

// --- モック ---

type mockProjectRepo struct {
	CreateFunc         func(ctx context.Context, p *model.Project) error
	GetByIDFunc        func(ctx context.Context, id string) (*model.Project, error)
	ListFunc           func(ctx context.Context) ([]*model.Project, error)
	ListByClientIDFunc func(ctx context.Context, clientID string) ([]*model.Project, error)
	UpdateStatusFunc   func(ctx context.Context, id string, expected, next model.Status) error
	ApplyQuoteFunc     func(ctx context.Context, id string, expected model.Status, f repository.QuoteFields) error
	RevertQuoteFunc    func(ctx context.Context, id string, status model.Status, quotedAt *time.Time) error
	SetFeaturedFunc    func(ctx context.Context, id string, featured bool) error
}

func (m *mockProjectRepo) Create(ctx context.Context, p *model.Project) error {
	return m.CreateFunc(ctx, p)
}
func (m *mockProjectRepo) GetByID(ctx context.Context, id string) (*model.Project, error) {
	return m.GetByIDFunc(ctx, id)
}
func (m *mockProjectRepo) List(ctx context.Context) ([]*model.Project, error) {
	return m.ListFunc(ctx)
}
func (m *mockProjectRepo) ListByClientID(ctx context.Context, clientID string) ([]*model.Project, error) {
	return m.ListByClientIDFunc(ctx, clientID)
}
func (m *mockProjectRepo) UpdateStatus(ctx context.Context, id string, expected, next model.Status) error {
	return m.UpdateStatusFunc(ctx, id, expected, next)
}
func (m *mockProjectRepo) ApplyQuote(ctx context.Context, id string, expected model.Status, f repository.QuoteFields) error {
	return m.ApplyQuoteFunc(ctx, id, expected, f)
}
func (m *mockProjectRepo) RevertQuote(ctx context.Context, id string, status model.Status, quotedAt *time.Time) error {
	return m.RevertQuoteFunc(ctx, id, status, quotedAt)
}
func (m *mockProjectRepo) SetFeatured(ctx context.Context, id string, featured bool) error {
	return m.SetFeaturedFunc(ctx, id, featured)
}

type mockLineItemRepo struct {
	ListByProjectIDFunc func(ctx context.Context, projectID string) ([]*model.LineItem, error)
	ReplaceAllFunc      func(ctx context.Context, projectID string, items []*model.LineItem) error
}

func (m *mockLineItemRepo) ListByProjectID(ctx context.Context, projectID string) ([]*model.LineItem, error) {
	return m.ListByProjectIDFunc(ctx, projectID)
}
func (m *mockLineItemRepo) ReplaceAll(ctx context.Context, projectID string, items []*model.LineItem) error {
	return m.ReplaceAllFunc(ctx, projectID, items)
}

type mockMessageRepo struct {
	InsertFunc        func(ctx context.Context, msg *model.Message) error
	ListByProjectFunc func(ctx context.Context, projectID string, includeInternal bool) ([]*model.Message, error)
}

func (m *mockMessageRepo) Insert(ctx context.Context, msg *model.Message) error {
	return m.InsertFunc(ctx, msg)
}
func (m *mockMessageRepo) ListByProject(ctx context.Context, projectID string, includeInternal bool) ([]*model.Message, error) {
	return m.ListByProjectFunc(ctx, projectID, includeInternal)
}

type mockMediaRepo struct {
	InsertFunc        func(ctx context.Context, md *model.Media) error
	GetByIDFunc       func(ctx context.Context, id string) (*model.Media, error)
	ListByProjectFunc func(ctx context.Context, projectID string) ([]*model.Media, error)
	DeleteFunc        func(ctx context.Context, id string) error
}

func (m *mockMediaRepo) Insert(ctx context.Context, md *model.Media) error {
	return m.InsertFunc(ctx, md)
}
func (m *mockMediaRepo) GetByID(ctx context.Context, id string) (*model.Media, error) {
	return m.GetByIDFunc(ctx, id)
}
func (m *mockMediaRepo) ListByProject(ctx context.Context, projectID string) ([]*model.Media, error) {
	return m.ListByProjectFunc(ctx, projectID)
}
func (m *mockMediaRepo) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

type mockUserRepo struct {
	FindByIDFunc    func(ctx context.Context, id string) (*model.User, error)
	FindByEmailFunc func(ctx context.Context, email string) (*model.User, error)
	ListStaffFunc   func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.FindByIDFunc(ctx, id)
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.FindByEmailFunc(ctx, email)
}
func (m *mockUserRepo) ListStaff(ctx context.Context) ([]*model.User, error) {
	return m.ListStaffFunc(ctx)
}

// recordingActivity は Record 呼び出しを記録する ActivityService
type recordingActivity struct {
	recorded []*model.Activity
}

func (a *recordingActivity) Record(_ context.Context, activity *model.Activity) {
	// DB の挿入と同じく id を採番して呼び出し元に返す
	activity.ID = fmt.Sprintf("act-%d", len(a.recorded)+1)
	a.recorded = append(a.recorded, activity)
}
func (a *recordingActivity) ListByProject(_ context.Context, _ string) ([]*model.Activity, error) {
	return a.recorded, nil
}

// recordingNotifier は Enqueue されたイベントを記録する
type recordingNotifier struct {
	events []notifier.Event
}

func (n *recordingNotifier) Enqueue(event notifier.Event) {
	n.events = append(n.events, event)
}

type mockStorage struct {
	SignURLFunc func(ctx context.Context, key string, expiry time.Duration) (string, error)
	DeleteFunc  func(ctx context.Context, key string) error
}

func (m *mockStorage) SignURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.SignURLFunc == nil {
		return "https://files.example/" + key, nil
	}
	return m.SignURLFunc(ctx, key, expiry)
}
func (m *mockStorage) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, key)
}

type mockMailer struct {
	SendFunc          func(ctx context.Context, email mailer.Email, eventID string) error
	FetchInboundFunc  func(ctx context.Context, id string) (*mailer.InboundEmail, error)
	VerifyWebhookFunc func(headers http.Header, payload []byte) error
}

func (m *mockMailer) Send(ctx context.Context, email mailer.Email, eventID string) error {
	if m.SendFunc == nil {
		return nil
	}
	return m.SendFunc(ctx, email, eventID)
}
func (m *mockMailer) FetchInbound(ctx context.Context, id string) (*mailer.InboundEmail, error) {
	return m.FetchInboundFunc(ctx, id)
}
func (m *mockMailer) VerifyWebhook(headers http.Header, payload []byte) error {
	if m.VerifyWebhookFunc == nil {
		return nil
	}
	return m.VerifyWebhookFunc(headers, payload)
}
