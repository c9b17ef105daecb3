package mailer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// webhookTolerance is the maximum clock skew accepted for webhook
// timestamps (replay attack protection).
const webhookTolerance = 5 * time.Minute

// VerifyWebhook は svix 方式の Webhook シグネチャを HMAC-SHA256 で検証する。
// 署名対象は "{id}.{timestamp}.{body}"、シークレットは whsec_ プレフィックス
// 付き base64。シークレット未設定の場合のみ検証をスキップする（開発用）。
func (c *RealClient) VerifyWebhook(headers http.Header, payload []byte) error {
	if c.WebhookSecret == "" {
		return nil
	}

	id := headerFirst(headers, "svix-id", "webhook-id")
	timestamp := headerFirst(headers, "svix-timestamp", "webhook-timestamp")
	sigHeader := headerFirst(headers, "svix-signature", "webhook-signature")
	if id == "" || timestamp == "" || sigHeader == "" {
		return errors.New("mailer: missing webhook signature headers")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.New("mailer: invalid webhook timestamp")
	}
	skew := c.now().Sub(time.Unix(ts, 0))
	if skew > webhookTolerance || skew < -webhookTolerance {
		return errors.New("mailer: webhook timestamp outside tolerance (replay attack protection)")
	}

	secret, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(c.WebhookSecret, "whsec_"))
	if err != nil {
		return fmt.Errorf("mailer: invalid webhook secret: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	mac.Write(payload)
	expected := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	// ヘッダーは "v1,<sig>" をスペース区切りで複数持ちうる
	for _, candidate := range strings.Fields(sigHeader) {
		version, sig, found := strings.Cut(candidate, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return errors.New("mailer: webhook signature verification failed")
}

func headerFirst(h http.Header, names ...string) string {
	for _, name := range names {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}
