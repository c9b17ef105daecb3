package model

import "time"

// 監査ログのアクションコード
const (
	ActionRFQSubmitted   = "rfq_submitted"
	ActionStatusChanged  = "status_changed"
	ActionQuoteGenerated = "quote_generated"
	ActionQuoteAccepted  = "quote_accepted"
	ActionQuoteRejected  = "quote_rejected"
	ActionCancelled      = "cancelled"
	ActionEmailReceived  = "email_received"
	ActionMediaAdded     = "media_added"
	ActionMediaDeleted   = "media_deleted"
)

// Activity is one immutable audit-trail fact for a project.
// Rows are only ever inserted; the ordered sequence is the audit trail.
type Activity struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	ActorID   string         `json:"-"`
	ActorName string         `json:"actor_name"`
	ActorRole string         `json:"actor_role"`
	Action    string         `json:"action"`
	OldValue  string         `json:"old_value,omitempty"`
	NewValue  string         `json:"new_value,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
