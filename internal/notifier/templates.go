package notifier

import (
	"fmt"
	"html"
	"strings"
)

// renderBody は通知メール共通の HTML レイアウトを組み立てる。
// paragraphs は本文の段落、linkPath は案件詳細への相対パス。
func renderBody(baseURL, heading string, paragraphs []string, linkPath string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:sans-serif;max-width:600px;margin:0 auto;">`)
	fmt.Fprintf(&b, `<h2 style="color:#1a3c34;">%s</h2>`, html.EscapeString(heading))
	for _, p := range paragraphs {
		fmt.Fprintf(&b, `<p>%s</p>`, html.EscapeString(p))
	}
	if linkPath != "" && baseURL != "" {
		fmt.Fprintf(&b,
			`<p><a href="%s%s" style="color:#1a6e5a;">プロジェクトを確認する / View project</a></p>`,
			baseURL, linkPath)
	}
	b.WriteString(`<hr style="border:none;border-top:1px solid #ddd;">`)
	b.WriteString(`<p style="color:#888;font-size:12px;">このメールに返信すると案件のメッセージスレッドに追加されます。<br>Replies to this email are added to the project thread.</p>`)
	b.WriteString(`</div>`)
	return b.String()
}

// RFQSubmitted は新規依頼受付の通知
func RFQSubmitted(cfg Config, projectID, clientName, surveyType, parish string) (subject, body string) {
	subject = fmt.Sprintf("新規依頼 / New survey request: %s (%s)", surveyType, parish)
	body = renderBody(cfg.PublicBaseURL, "新しい測量依頼が届きました",
		[]string{
			fmt.Sprintf("%s 様から %s の依頼が届きました（%s）。", clientName, surveyType, parish),
			"内容を確認し、見積もりを作成してください。",
		},
		"/projects/"+projectID)
	return subject, body
}

// StatusChanged は状態遷移の通知
func StatusChanged(cfg Config, projectID, projectName, oldStatus, newStatus string) (subject, body string) {
	subject = fmt.Sprintf("ステータス更新 / Status update: %s", projectName)
	body = renderBody(cfg.PublicBaseURL, "プロジェクトのステータスが更新されました",
		[]string{
			fmt.Sprintf("%s のステータスが %s から %s に変わりました。", projectName, oldStatus, newStatus),
		},
		"/projects/"+projectID)
	return subject, body
}

// QuoteReady は見積もり発行の通知（クライアント向け）
func QuoteReady(cfg Config, projectID, projectName string, totalJMD float64) (subject, body string) {
	subject = fmt.Sprintf("お見積もり / Your quote is ready: %s", projectName)
	body = renderBody(cfg.PublicBaseURL, "お見積もりが準備できました",
		[]string{
			fmt.Sprintf("%s のお見積もり金額は JMD %.2f です。", projectName, totalJMD),
			"内容をご確認のうえ、承認または辞退をお知らせください。",
		},
		"/projects/"+projectID)
	return subject, body
}

// QuoteDecision は見積もりの承認・辞退の通知（スタッフ向け）
func QuoteDecision(cfg Config, projectID, projectName string, accepted bool, reason string) (subject, body string) {
	decision := "承認 / accepted"
	if !accepted {
		decision = "辞退 / declined"
	}
	subject = fmt.Sprintf("見積もり%s: %s", decision, projectName)
	paragraphs := []string{
		fmt.Sprintf("%s の見積もりが%sされました。", projectName, decision),
	}
	if reason != "" {
		paragraphs = append(paragraphs, "理由: "+reason)
	}
	body = renderBody(cfg.PublicBaseURL, "見積もりへの回答がありました", paragraphs,
		"/projects/"+projectID)
	return subject, body
}

// MessagePosted は新着メッセージの通知
func MessagePosted(cfg Config, projectID, projectName, senderName, preview string) (subject, body string) {
	subject = fmt.Sprintf("新着メッセージ / New message: %s", projectName)
	if len([]rune(preview)) > 200 {
		preview = string([]rune(preview)[:200]) + "…"
	}
	body = renderBody(cfg.PublicBaseURL, "新しいメッセージが届きました",
		[]string{
			fmt.Sprintf("%s さんからのメッセージ:", senderName),
			preview,
		},
		"/projects/"+projectID)
	return subject, body
}
