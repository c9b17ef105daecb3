package model

import "time"

// メッセージの発生元
const (
	MessageSourcePanel  = "panel"
	MessageSourceSystem = "system"
	MessageSourceEmail  = "email"
)

// Message はプロジェクトのスレッドに紐づく1件のメッセージ。
// is_internal が true のものはクライアントには表示されない。
type Message struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	SenderID   string    `json:"-"`
	SenderName string    `json:"sender_name"`
	SenderRole string    `json:"sender_role"`
	Body       string    `json:"body"`
	IsInternal bool      `json:"is_internal"`
	Source     string    `json:"source"` // "panel" | "system" | "email"
	CreatedAt  time.Time `json:"created_at"`
}
