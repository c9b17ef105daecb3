package service

import (
	"context"
	"strings"

	"github.com/surveyops/backend/internal/model"
	"github.com/surveyops/backend/internal/notifier"
	"github.com/surveyops/backend/internal/repository"
)

// MessageService はプロジェクトスレッドのメッセージ操作を提供する
type MessageService interface {
	Post(ctx context.Context, projectID, body string, isInternal bool) (*model.Message, error)
	ListByProject(ctx context.Context, projectID string) ([]*model.Message, error)
}

type MessageServiceImpl struct {
	projectRepo repository.ProjectRepository
	messageRepo repository.MessageRepository
	notify      notifier.Notifier
	cfg         notifier.Config
}

func NewMessageService(
	projectRepo repository.ProjectRepository,
	messageRepo repository.MessageRepository,
	notify notifier.Notifier,
	cfg notifier.Config,
) *MessageServiceImpl {
	return &MessageServiceImpl{
		projectRepo: projectRepo,
		messageRepo: messageRepo,
		notify:      notify,
		cfg:         cfg,
	}
}

// Post はメッセージをスレッドへ追加する。
// 内部メッセージ（is_internal）はスタッフのみ投稿でき、クライアントには
// 表示も通知もされない。
func (s *MessageServiceImpl) Post(ctx context.Context, projectID, body string, isInternal bool) (*model.Message, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, validationError("body is required")
	}
	if isInternal && !actor.IsStaff() {
		return nil, ErrForbidden
	}

	p, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !canAccessProject(actor, p.ClientID) {
		return nil, ErrForbidden
	}

	msg := &model.Message{
		ProjectID:  projectID,
		SenderID:   actor.ID,
		SenderName: actor.Name,
		SenderRole: actor.Role,
		Body:       strings.TrimSpace(body),
		IsInternal: isInternal,
		Source:     model.MessageSourcePanel,
	}
	if err := s.messageRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}

	subject, html := notifier.MessagePosted(s.cfg, p.ID, displayName(p), actor.Name, msg.Body)
	s.notify.Enqueue(notifier.Event{
		ProjectID:   p.ID,
		ProjectName: displayName(p),
		ClientEmail: p.ClientEmail,
		ActorEmail:  actor.Email,
		Subject:     subject,
		HTML:        html,
		SourceID:    msg.ID,
		StaffOnly:   isInternal,
	})

	return msg, nil
}

// ListByProject はスレッドのメッセージを古い順に返す
func (s *MessageServiceImpl) ListByProject(ctx context.Context, projectID string) ([]*model.Message, error) {
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

	return s.messageRepo.ListByProject(ctx, projectID, actor.IsStaff())
}
