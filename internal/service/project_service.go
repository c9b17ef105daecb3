package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surveyops/backend/internal/model"
	"github.com/surveyops/backend/internal/notifier"
	"github.com/surveyops/backend/internal/repository"
	"github.com/surveyops/backend/internal/storage"
	"github.com/surveyops/backend/pkg/auth"
)

// signedURLExpiry is how long media download links stay valid.
const signedURLExpiry = 15 * time.Minute

// CreateProjectInput は新規依頼（RFQ）の入力
type CreateProjectInput struct {
	ClientName      string `json:"client_name"`
	ClientEmail     string `json:"client_email"`
	ClientPhone     string `json:"client_phone"`
	Parish          string `json:"parish"`
	PropertyAddress string `json:"property_address"`
	SurveyType      string `json:"survey_type"`
	Description     string `json:"description"`
}

// RegisterMediaInput はアップロード済みオブジェクトの登録入力
type RegisterMediaInput struct {
	Kind        string `json:"kind"`
	StorageKey  string `json:"storage_key"`
	FileName    string `json:"file_name"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

// ProjectService はプロジェクトライフサイクル操作のインターフェース
type ProjectService interface {
	Create(ctx context.Context, input CreateProjectInput) (*model.Project, error)
	List(ctx context.Context) ([]*model.Project, error)
	Get(ctx context.Context, id string) (*model.Project, error)
	UpdateStatus(ctx context.Context, id string, next model.Status) (*model.Project, error)
	Cancel(ctx context.Context, id string, reason string) (*model.Project, error)
	SetFeatured(ctx context.Context, id string, featured bool) error
	RegisterMedia(ctx context.Context, projectID string, input RegisterMediaInput) (*model.Media, error)
	DeleteMedia(ctx context.Context, projectID, mediaID string) error
}

type ProjectServiceImpl struct {
	projectRepo  repository.ProjectRepository
	lineItemRepo repository.LineItemRepository
	messageRepo  repository.MessageRepository
	mediaRepo    repository.MediaRepository
	activity     ActivityService
	store        storage.Storage
	notify       notifier.Notifier
	cfg          notifier.Config
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	lineItemRepo repository.LineItemRepository,
	messageRepo repository.MessageRepository,
	mediaRepo repository.MediaRepository,
	activity ActivityService,
	store storage.Storage,
	notify notifier.Notifier,
	cfg notifier.Config,
) *ProjectServiceImpl {
	return &ProjectServiceImpl{
		projectRepo:  projectRepo,
		lineItemRepo: lineItemRepo,
		messageRepo:  messageRepo,
		mediaRepo:    mediaRepo,
		activity:     activity,
		store:        store,
		notify:       notify,
		cfg:          cfg,
	}
}

// displayName はメール・ログで使う案件の表示名
func displayName(p *model.Project) string {
	return fmt.Sprintf("%s (%s, %s)", p.SurveyType, p.ClientName, p.Parish)
}

// Create は新規依頼を受け付ける。初期状態は rfq_submitted。
// 依頼はクライアント本人のみが出せる（スタッフの代理登録は受け付けない）。
func (s *ProjectServiceImpl) Create(ctx context.Context, input CreateProjectInput) (*model.Project, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsClient() {
		return nil, ErrForbidden
	}

	required := map[string]string{
		"client_name":      input.ClientName,
		"client_email":     input.ClientEmail,
		"parish":           input.Parish,
		"property_address": input.PropertyAddress,
		"survey_type":      input.SurveyType,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return nil, validationError("%s is required", field)
		}
	}

	p := &model.Project{
		ClientID:        actor.ID,
		ClientName:      strings.TrimSpace(input.ClientName),
		ClientEmail:     strings.TrimSpace(input.ClientEmail),
		ClientPhone:     strings.TrimSpace(input.ClientPhone),
		Parish:          strings.TrimSpace(input.Parish),
		PropertyAddress: strings.TrimSpace(input.PropertyAddress),
		SurveyType:      strings.TrimSpace(input.SurveyType),
		Description:     strings.TrimSpace(input.Description),
		Status:          model.StatusRFQSubmitted,
	}

	if err := s.projectRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	act := &model.Activity{
		ProjectID: p.ID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Action:    model.ActionRFQSubmitted,
		NewValue:  string(model.StatusRFQSubmitted),
	}
	s.activity.Record(ctx, act)
	systemMessage(ctx, s.messageRepo, p.ID,
		fmt.Sprintf("依頼を受け付けました / Request received: %s", p.SurveyType))

	// スタッフ向けとクライアント（依頼者本人）向けを独立に送る。
	// 依頼者は除外対象にしない
	subject, body := notifier.RFQSubmitted(s.cfg, p.ID, p.ClientName, p.SurveyType, p.Parish)
	s.notify.Enqueue(notifier.Event{
		ProjectID:   p.ID,
		ProjectName: displayName(p),
		ActorEmail:  actor.Email,
		Subject:     subject,
		HTML:        body,
		SourceID:    act.ID + ":staff",
		StaffOnly:   true,
	})
	s.notify.Enqueue(notifier.Event{
		ProjectID:   p.ID,
		ProjectName: displayName(p),
		ClientEmail: p.ClientEmail,
		Subject:     subject,
		HTML:        body,
		SourceID:    act.ID + ":client",
		SkipStaff:   true,
	})

	return p, nil
}

// List は閲覧可能な案件一覧を返す。スタッフは全件、クライアントは自分の案件のみ
func (s *ProjectServiceImpl) List(ctx context.Context) ([]*model.Project, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.IsStaff() {
		return s.projectRepo.List(ctx)
	}
	return s.projectRepo.ListByClientID(ctx, actor.ID)
}

// Get は案件詳細（明細・監査ログ・メッセージ・メディア込み）を返す
func (s *ProjectServiceImpl) Get(ctx context.Context, id string) (*model.Project, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccessProject(actor, p.ClientID) {
		return nil, ErrForbidden
	}

	if p.LineItems, err = s.lineItemRepo.ListByProjectID(ctx, id); err != nil {
		return nil, err
	}
	if p.Activities, err = s.activity.ListByProject(ctx, id); err != nil {
		return nil, err
	}
	// 内部メッセージはスタッフにのみ見せる
	if p.Messages, err = s.messageRepo.ListByProject(ctx, id, actor.IsStaff()); err != nil {
		return nil, err
	}

	media, err := s.mediaRepo.ListByProject(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, m := range media {
		url, err := s.store.SignURL(ctx, m.StorageKey, signedURLExpiry)
		if err != nil {
			slog.Error("failed to sign media URL", "media_id", m.ID, "error", err)
			continue
		}
		m.URL = url
	}
	p.Media = media

	return p, nil
}

// UpdateStatus は案件の状態を遷移させる（スタッフのみ）。
// 遷移表にないエッジは拒否し、DB 側では compare-and-set で競合を検出する。
func (s *ProjectServiceImpl) UpdateStatus(ctx context.Context, id string, next model.Status) (*model.Project, error) {
	actor, err := requireStaff(ctx)
	if err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, validationError("unknown status %q", next)
	}

	p, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Status.CanTransitionTo(next) {
		return nil, &ErrInvalidTransition{From: p.Status, To: next}
	}

	if err := s.projectRepo.UpdateStatus(ctx, id, p.Status, next); err != nil {
		return nil, casConflict(err)
	}

	old := p.Status
	s.recordTransition(ctx, p, actor, old, next, "")

	return s.projectRepo.GetByID(ctx, id)
}

// Cancel は案件をキャンセルする。終端状態でなければどこからでも可能。
// クライアントは自分の案件のみ、スタッフは全件キャンセルできる。
func (s *ProjectServiceImpl) Cancel(ctx context.Context, id string, reason string) (*model.Project, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccessProject(actor, p.ClientID) {
		return nil, ErrForbidden
	}
	if !p.Status.CanTransitionTo(model.StatusCancelled) {
		return nil, &ErrInvalidTransition{From: p.Status, To: model.StatusCancelled}
	}

	if err := s.projectRepo.UpdateStatus(ctx, id, p.Status, model.StatusCancelled); err != nil {
		return nil, casConflict(err)
	}

	act := &model.Activity{
		ProjectID: p.ID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Action:    model.ActionCancelled,
		OldValue:  string(p.Status),
		NewValue:  string(model.StatusCancelled),
		Detail:    detailIf("reason", reason),
	}
	s.activity.Record(ctx, act)
	systemMessage(ctx, s.messageRepo, p.ID, "案件がキャンセルされました / Project cancelled")

	subject, body := notifier.StatusChanged(s.cfg, p.ID, displayName(p),
		string(p.Status), string(model.StatusCancelled))
	s.notify.Enqueue(notifier.Event{
		ProjectID:   p.ID,
		ProjectName: displayName(p),
		ClientEmail: p.ClientEmail,
		ActorEmail:  actor.Email,
		Subject:     subject,
		HTML:        body,
		SourceID:    act.ID,
	})

	return s.projectRepo.GetByID(ctx, id)
}

// SetFeatured はポートフォリオ掲載フラグを設定する（スタッフのみ）。
// 冪等で、監査ログ・通知の対象外。
func (s *ProjectServiceImpl) SetFeatured(ctx context.Context, id string, featured bool) error {
	if _, err := requireStaff(ctx); err != nil {
		return err
	}
	return s.projectRepo.SetFeatured(ctx, id, featured)
}

// RegisterMedia はアップロード済みオブジェクトを案件に登録する。
// スタッフまたは案件のオーナーであるクライアントが登録できる
func (s *ProjectServiceImpl) RegisterMedia(ctx context.Context, projectID string, input RegisterMediaInput) (*model.Media, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if input.StorageKey == "" || input.FileName == "" {
		return nil, validationError("storage_key and file_name are required")
	}
	if input.Kind != model.MediaKindMedia && input.Kind != model.MediaKindAttachment {
		return nil, validationError("kind must be %q or %q", model.MediaKindMedia, model.MediaKindAttachment)
	}

	p, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !canAccessProject(actor, p.ClientID) {
		return nil, ErrForbidden
	}

	m := &model.Media{
		ProjectID:   projectID,
		Kind:        input.Kind,
		StorageKey:  input.StorageKey,
		FileName:    input.FileName,
		SizeBytes:   input.SizeBytes,
		ContentType: input.ContentType,
		UploadedBy:  actor.ID,
	}
	if err := s.mediaRepo.Insert(ctx, m); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, &model.Activity{
		ProjectID: projectID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Action:    model.ActionMediaAdded,
		NewValue:  input.FileName,
	})
	return m, nil
}

// DeleteMedia はメディアの登録とストレージ上のオブジェクトを削除する。
// スタッフまたは案件のオーナーであるクライアントが削除できる
func (s *ProjectServiceImpl) DeleteMedia(ctx context.Context, projectID, mediaID string) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}

	p, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if !canAccessProject(actor, p.ClientID) {
		return ErrForbidden
	}

	m, err := s.mediaRepo.GetByID(ctx, mediaID)
	if err != nil {
		return err
	}
	if m.ProjectID != projectID {
		return repository.ErrNotFound
	}

	if err := s.mediaRepo.Delete(ctx, mediaID); err != nil {
		return err
	}
	// 行の削除が成功したらオブジェクトも消す。失敗はログに残すのみ
	if err := s.store.Delete(ctx, m.StorageKey); err != nil {
		slog.Error("failed to delete storage object", "key", m.StorageKey, "error", err)
	}

	s.activity.Record(ctx, &model.Activity{
		ProjectID: projectID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Action:    model.ActionMediaDeleted,
		OldValue:  m.FileName,
	})
	return nil
}

// recordTransition は状態遷移に伴う監査・メッセージ・通知をまとめて行う
func (s *ProjectServiceImpl) recordTransition(ctx context.Context, p *model.Project, actor auth.Actor, old, next model.Status, note string) {
	act := &model.Activity{
		ProjectID: p.ID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Action:    model.ActionStatusChanged,
		OldValue:  string(old),
		NewValue:  string(next),
		Detail:    detailIf("note", note),
	}
	s.activity.Record(ctx, act)
	systemMessage(ctx, s.messageRepo, p.ID,
		fmt.Sprintf("ステータスが %s から %s に更新されました", old, next))

	subject, body := notifier.StatusChanged(s.cfg, p.ID, displayName(p), string(old), string(next))
	s.notify.Enqueue(notifier.Event{
		ProjectID:   p.ID,
		ProjectName: displayName(p),
		ClientEmail: p.ClientEmail,
		ActorEmail:  actor.Email,
		Subject:     subject,
		HTML:        body,
		SourceID:    act.ID,
	})
}

// systemMessage はシステム発のメッセージをスレッドへ追加する。失敗はログのみ
func systemMessage(ctx context.Context, repo repository.MessageRepository, projectID, body string) {
	msg := &model.Message{
		ProjectID:  projectID,
		SenderName: "System",
		SenderRole: "system",
		Body:       body,
		Source:     model.MessageSourceSystem,
	}
	if err := repo.Insert(ctx, msg); err != nil {
		slog.Error("failed to insert system message", "project_id", projectID, "error", err)
	}
}

// detailIf は値が空でない場合のみ detail マップを作る
func detailIf(key, value string) map[string]any {
	if value == "" {
		return nil
	}
	return map[string]any{key: value}
}
