package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/surveyops/backend/internal/service"
	"github.com/surveyops/backend/pkg/mailer"
)

// maxWebhookBody bounds the accepted webhook payload size.
const maxWebhookBody = 1 << 20 // 1MB

// WebhookHandler はメールプロバイダからの Webhook を受ける
type WebhookHandler struct {
	mail    mailer.Client
	inbound service.InboundService
}

func NewWebhookHandler(mail mailer.Client, inbound service.InboundService) *WebhookHandler {
	return &WebhookHandler{mail: mail, inbound: inbound}
}

// HandleInboundEmail godoc: POST /api/comms/webhooks/inbound-email
//
// シグネチャ不正・パース不能のみ非 200 を返す。解釈できたが対象外の
// イベントは 200 で受け流す（プロバイダの無用な再送を避けるため）。
func (h *WebhookHandler) HandleInboundEmail(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload")
		return
	}

	if err := h.mail.VerifyWebhook(r.Header, payload); err != nil {
		slog.Warn("webhook signature verification failed", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid_signature")
		return
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			EmailID string `json:"email_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload")
		return
	}

	if event.Type != "email.received" || event.Data.EmailID == "" {
		// 対象外のイベントタイプは正常応答で無視する
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := h.inbound.ProcessInbound(r.Context(), event.Data.EmailID); err != nil {
		// 処理失敗はログに残すが、プロバイダへの再送は求めない
		slog.Error("failed to process inbound email",
			"email_id", event.Data.EmailID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}
