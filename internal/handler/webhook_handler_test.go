package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/surveyops/backend/pkg/mailer"
)

type stubMailer struct {
	verifyErr error
}

func (m *stubMailer) Send(_ context.Context, _ mailer.Email, _ string) error { return nil }
func (m *stubMailer) FetchInbound(_ context.Context, _ string) (*mailer.InboundEmail, error) {
	return nil, nil
}
func (m *stubMailer) VerifyWebhook(_ http.Header, _ []byte) error { return m.verifyErr }

type stubInbound struct {
	processed []string
	err       error
}

func (s *stubInbound) ProcessInbound(_ context.Context, emailID string) error {
	s.processed = append(s.processed, emailID)
	return s.err
}

func postWebhook(h *WebhookHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/comms/webhooks/inbound-email", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleInboundEmail(rec, req)
	return rec
}

func TestWebhookProcessesInboundEmail(t *testing.T) {
	inbound := &stubInbound{}
	h := NewWebhookHandler(&stubMailer{}, inbound)

	rec := postWebhook(h, `{"type":"email.received","data":{"email_id":"em-1"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(inbound.processed) != 1 || inbound.processed[0] != "em-1" {
		t.Errorf("processed = %v", inbound.processed)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	inbound := &stubInbound{}
	h := NewWebhookHandler(&stubMailer{verifyErr: errors.New("bad signature")}, inbound)

	rec := postWebhook(h, `{"type":"email.received","data":{"email_id":"em-1"}}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(inbound.processed) != 0 {
		t.Error("unverified payload must not be processed")
	}
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	h := NewWebhookHandler(&stubMailer{}, &stubInbound{})

	rec := postWebhook(h, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	inbound := &stubInbound{}
	h := NewWebhookHandler(&stubMailer{}, inbound)

	rec := postWebhook(h, `{"type":"email.delivered","data":{"email_id":"em-1"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for unactionable event", rec.Code)
	}
	if len(inbound.processed) != 0 {
		t.Error("unrelated event types must be ignored")
	}
}

func TestWebhookReturns200OnProcessingFailure(t *testing.T) {
	inbound := &stubInbound{err: errors.New("db down")}
	h := NewWebhookHandler(&stubMailer{}, inbound)

	// 処理失敗はこちら側の問題なのでプロバイダに再送させない
	rec := postWebhook(h, `{"type":"email.received","data":{"email_id":"em-1"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
