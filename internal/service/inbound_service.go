package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"

	"github.com/surveyops/backend/internal/model"
	"github.com/surveyops/backend/internal/notifier"
	"github.com/surveyops/backend/internal/repository"
	"github.com/surveyops/backend/pkg/mailer"
)

// maxInboundRunes bounds how much of an email body is stored.
const maxInboundRunes = 10000

// 返信アドレス project+<id>@... から案件 ID を取り出す
var reInboundAddress = regexp.MustCompile(`(?i)^project\+([a-z0-9-]+)@`)

// 引用返信の区切り行。これ以降は過去のやり取りの引用とみなして捨てる
var (
	reDashDelimiter       = regexp.MustCompile(`^\s*-{3,}\s*$`)
	reOnWroteDelimiter    = regexp.MustCompile(`^\s*On .+ wrote:\s*$`)
	reUnderscoreDelimiter = regexp.MustCompile(`^\s*_{8,}\s*$`)
)

// InboundService は受信メールをプロジェクトスレッドへ取り込む
type InboundService interface {
	// ProcessInbound fetches the received email by provider id and appends
	// it to the matching project thread. Emails that do not address a
	// project reply alias are silently ignored.
	ProcessInbound(ctx context.Context, emailID string) error
}

type InboundServiceImpl struct {
	mail        mailer.Client
	projectRepo repository.ProjectRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	activity    ActivityService
	notify      notifier.Notifier
	cfg         notifier.Config
}

func NewInboundService(
	mail mailer.Client,
	projectRepo repository.ProjectRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	activity ActivityService,
	notify notifier.Notifier,
	cfg notifier.Config,
) *InboundServiceImpl {
	return &InboundServiceImpl{
		mail:        mail,
		projectRepo: projectRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		activity:    activity,
		notify:      notify,
		cfg:         cfg,
	}
}

// ProcessInbound は受信メールを取得し、該当案件のスレッドへ追加する
func (s *InboundServiceImpl) ProcessInbound(ctx context.Context, emailID string) error {
	email, err := s.mail.FetchInbound(ctx, emailID)
	if err != nil {
		return fmt.Errorf("fetch inbound email %s: %w", emailID, err)
	}

	projectID := extractProjectID(email.To)
	if projectID == "" {
		// 案件宛てでないメールは対象外。エラーにはしない
		slog.Info("inbound email without project alias, ignoring", "email_id", emailID)
		return nil
	}

	p, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("inbound email for unknown project, ignoring",
				"email_id", emailID, "project_id", projectID)
			return nil
		}
		return err
	}

	body := email.Text
	if strings.TrimSpace(body) == "" {
		body = mailer.StripHTML(email.HTML)
	}
	body = stripQuotedReply(body)
	if runes := []rune(body); len(runes) > maxInboundRunes {
		body = string(runes[:maxInboundRunes])
	}
	if strings.TrimSpace(body) == "" {
		slog.Info("inbound email with empty body after cleanup, ignoring", "email_id", emailID)
		return nil
	}

	senderAddr := parseAddress(email.From)
	msg := &model.Message{
		ProjectID: projectID,
		Body:      body,
		Source:    model.MessageSourceEmail,
	}
	if user, err := s.userRepo.FindByEmail(ctx, senderAddr); err == nil {
		msg.SenderID = user.ID
		msg.SenderName = user.Name
		msg.SenderRole = user.Role
	} else {
		// 登録ユーザー以外（クライアントが別アドレスから返信した場合など）
		msg.SenderName = senderAddr
		msg.SenderRole = "external"
	}

	if err := s.messageRepo.Insert(ctx, msg); err != nil {
		return err
	}

	s.activity.Record(ctx, &model.Activity{
		ProjectID: projectID,
		ActorID:   msg.SenderID,
		ActorName: msg.SenderName,
		ActorRole: msg.SenderRole,
		Action:    model.ActionEmailReceived,
		Detail: map[string]any{
			"email_id": emailID,
			"subject":  email.Subject,
		},
	})

	subject, html := notifier.MessagePosted(s.cfg, p.ID, displayName(p), msg.SenderName, body)
	s.notify.Enqueue(notifier.Event{
		ProjectID:   p.ID,
		ProjectName: displayName(p),
		ClientEmail: p.ClientEmail,
		ActorEmail:  senderAddr,
		Subject:     subject,
		HTML:        html,
		SourceID:    emailID,
	})

	return nil
}

// extractProjectID は宛先リストから project+<id>@ 形式のアドレスを探す
func extractProjectID(to []string) string {
	for _, raw := range to {
		addr := parseAddress(raw)
		if m := reInboundAddress.FindStringSubmatch(addr); m != nil {
			return m[1]
		}
	}
	return ""
}

// parseAddress は "Name <addr>" 形式からアドレス部分を取り出す
func parseAddress(raw string) string {
	if parsed, err := mail.ParseAddress(raw); err == nil {
		return strings.ToLower(parsed.Address)
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

// stripQuotedReply は引用部分の開始行以降を取り除く
func stripQuotedReply(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if reDashDelimiter.MatchString(line) ||
			reOnWroteDelimiter.MatchString(line) ||
			reUnderscoreDelimiter.MatchString(line) {
			lines = lines[:i]
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
