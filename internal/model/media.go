package model

import "time"

// Media registry kinds.
const (
	MediaKindMedia      = "media"
	MediaKindAttachment = "attachment"
)

// Media is a pointer to a previously uploaded object in storage.
// Deleting a row also deletes the underlying object.
type Media struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Kind        string    `json:"kind"` // "media" | "attachment"
	StorageKey  string    `json:"storage_key"`
	FileName    string    `json:"file_name"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`

	// Transient: signed download URL, set when listing
	URL string `json:"url,omitempty"`
}
