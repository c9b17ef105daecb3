// Package notifier turns project lifecycle events into outbound email.
// 通知はベストエフォート：失敗してもライフサイクル操作自体は成功する。
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surveyops/backend/internal/repository"
	"github.com/surveyops/backend/pkg/mailer"
)

// Config は通知の宛先・差出人設定
type Config struct {
	FromAddress   string // 差出人（例: SurveyOps <no-reply@surveyops.example>）
	TeamInbox     string // スタッフ共有受信箱。空ならスタッフ個別メールへ
	CCAddress     string // 常に CC する運用アドレス（任意）
	InboundDomain string // 返信用アドレスのドメイン（project+<id>@domain）
	PublicBaseURL string // メール内リンクの起点
}

// Event は通知対象となった1つのライフサイクルイベント
type Event struct {
	ProjectID    string
	ProjectName  string // クライアント名 + 測量種別の表示用
	ClientEmail  string
	ActorEmail   string // イベントを起こした本人。宛先から除外される
	Subject      string
	HTML         string
	SourceID     string // 冪等キーの種。監査エントリ ID など
	StaffOnly    bool   // クライアントには送らない内部通知
	SkipStaff    bool   // スタッフには送らない（クライアント向けのみ）
}

// Notifier はイベント通知のエンキューを提供する
type Notifier interface {
	// Enqueue schedules delivery and returns immediately. The queue is
	// bounded; when full the event is dropped with a log entry.
	Enqueue(event Event)
}

// queueSize bounds the in-flight notification backlog.
const queueSize = 64

// sendTimeout bounds a single delivery including retries.
const sendTimeout = 30 * time.Second

// EmailNotifier は mailer 経由でメール通知を送る実装。
// バッファ付きチャネル + ワーカー goroutine で呼び出し元をブロックしない。
type EmailNotifier struct {
	mail     mailer.Client
	userRepo repository.UserRepository
	cfg      Config
	queue    chan Event
	done     chan struct{}
}

func NewEmailNotifier(mail mailer.Client, userRepo repository.UserRepository, cfg Config) *EmailNotifier {
	n := &EmailNotifier{
		mail:     mail,
		userRepo: userRepo,
		cfg:      cfg,
		queue:    make(chan Event, queueSize),
		done:     make(chan struct{}),
	}
	go n.worker()
	return n
}

// Enqueue はイベントをキューに積む。満杯の場合は破棄してログに残す
func (n *EmailNotifier) Enqueue(event Event) {
	select {
	case n.queue <- event:
	default:
		slog.Warn("notifier: queue full, dropping event",
			"project_id", event.ProjectID, "subject", event.Subject)
	}
}

// Close はキューを閉じ、残りのイベントの送信完了を待つ
func (n *EmailNotifier) Close() {
	close(n.queue)
	<-n.done
}

func (n *EmailNotifier) worker() {
	defer close(n.done)
	for event := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		n.deliver(ctx, event)
		cancel()
	}
}

// deliver は宛先を解決してメールを送信する
func (n *EmailNotifier) deliver(ctx context.Context, event Event) {
	to := n.recipients(ctx, event)
	if len(to) == 0 {
		slog.Info("notifier: no recipients after exclusions, skipping",
			"project_id", event.ProjectID, "subject", event.Subject)
		return
	}

	email := mailer.Email{
		From:    n.cfg.FromAddress,
		To:      to,
		Subject: event.Subject,
		HTML:    event.HTML,
		Text:    mailer.StripHTML(event.HTML),
	}
	if n.cfg.CCAddress != "" {
		email.CC = []string{n.cfg.CCAddress}
	}
	if n.cfg.InboundDomain != "" {
		// 返信はこのアドレス経由で案件スレッドへ戻る
		email.ReplyTo = fmt.Sprintf("project+%s@%s", event.ProjectID, n.cfg.InboundDomain)
	}

	if err := n.mail.Send(ctx, email, event.SourceID); err != nil {
		slog.Error("notifier: delivery failed",
			"project_id", event.ProjectID, "subject", event.Subject, "error", err)
	}
}

// recipients は宛先リストを組み立てる。イベントを起こした本人は除外する
func (n *EmailNotifier) recipients(ctx context.Context, event Event) []string {
	var addrs []string

	if !event.SkipStaff {
		if n.cfg.TeamInbox != "" {
			addrs = append(addrs, n.cfg.TeamInbox)
		} else if staff, err := n.userRepo.ListStaff(ctx); err == nil {
			for _, u := range staff {
				addrs = append(addrs, u.Email)
			}
		} else {
			slog.Error("notifier: failed to list staff recipients", "error", err)
		}
	}

	if !event.StaffOnly && event.ClientEmail != "" {
		addrs = append(addrs, event.ClientEmail)
	}

	out := addrs[:0]
	seen := make(map[string]bool)
	for _, a := range addrs {
		key := strings.ToLower(a)
		if key == strings.ToLower(event.ActorEmail) || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
