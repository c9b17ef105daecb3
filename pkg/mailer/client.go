// Package mailer provides a lightweight transactional-email client for
// SurveyOps. Uses raw HTTP calls (no SDK) to minimize external dependencies.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL は送信 API のエンドポイント
const DefaultBaseURL = "https://api.resend.com"

// requestTimeout bounds a single provider call.
const requestTimeout = 12 * time.Second

// retryDelays is the backoff ladder applied to retryable status classes
// (429 and 5xx). The first attempt is immediate.
var retryDelays = []time.Duration{0, 500 * time.Millisecond, 1500 * time.Millisecond}

// Email は送信する1通のメール
type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	CC      []string `json:"cc,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

// InboundEmail は受信 API から取得した1通のメール。
// Webhook ペイロードには本文が含まれないため、別途この形で取得する。
type InboundEmail struct {
	ID      string   `json:"id"`
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// Client はメールプロバイダクライアントのインターフェース
type Client interface {
	// Send delivers one email. eventID seeds the provider-side idempotency
	// key; pass "" to generate a fresh one. Never returns an error for
	// missing credentials — sending degrades to a logged no-op.
	Send(ctx context.Context, email Email, eventID string) error
	// FetchInbound retrieves a received email's body via the receiving API.
	FetchInbound(ctx context.Context, id string) (*InboundEmail, error)
	// VerifyWebhook validates an inbound webhook request signature.
	VerifyWebhook(headers http.Header, payload []byte) error
}

// RealClient はプロバイダ API への raw HTTP クライアント実装
type RealClient struct {
	APIKey        string
	BaseURL       string
	WebhookSecret string // whsec_...
	httpClient    *http.Client
	now           func() time.Time
}

// NewClient は RealClient を生成する
func NewClient(apiKey, webhookSecret string) *RealClient {
	return &RealClient{
		APIKey:        apiKey,
		BaseURL:       DefaultBaseURL,
		WebhookSecret: webhookSecret,
		httpClient:    &http.Client{Timeout: requestTimeout},
		now:           time.Now,
	}
}

// ErrNotConfigured はプロバイダが設定されていない場合のエラー
var ErrNotConfigured = errors.New("mailer: not configured")

// Send はメールを送信する。429 / 5xx の場合のみ retryDelays に沿って再試行し、
// Idempotency-Key ヘッダーでプロバイダ側の重複配信を防ぐ。
func (c *RealClient) Send(ctx context.Context, email Email, eventID string) error {
	if c.APIKey == "" {
		slog.Warn("mailer: no API key configured, dropping email", "subject", email.Subject)
		return nil
	}

	idempotencyKey := eventID
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	body, err := json.Marshal(email)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt, delay := range retryDelays {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		retryable, err := c.sendOnce(ctx, body, idempotencyKey)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
		slog.Warn("mailer: send attempt failed", "attempt", attempt+1, "error", err)
	}
	return lastErr
}

// sendOnce performs a single POST /emails call. The bool result reports
// whether the failure class is retryable.
func (c *RealClient) sendOnce(ctx context.Context, body []byte, idempotencyKey string) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost,
		c.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors (incl. timeout) are worth one more try.
		return true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 400 {
		return false, nil
	}

	var errResp struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	err = fmt.Errorf("mailer send: status %d: %s", resp.StatusCode, errResp.Message)

	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return retryable, err
}

// FetchInbound は受信 API から本文込みのメールを取得する
func (c *RealClient) FetchInbound(ctx context.Context, id string) (*InboundEmail, error) {
	if c.APIKey == "" {
		return nil, ErrNotConfigured
	}

	cctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/emails/receiving/%s", c.BaseURL, id)
	req, err := http.NewRequestWithContext(cctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("mailer fetch inbound: status %d: %s", resp.StatusCode, errResp.Message)
	}

	var email InboundEmail
	if err := json.NewDecoder(resp.Body).Decode(&email); err != nil {
		return nil, err
	}
	return &email, nil
}
