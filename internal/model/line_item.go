package model

import "time"

// LineItem represents one billable line of a project quote.
// The full set is replaced (delete-then-insert) on every quote generation.
type LineItem struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	Unit        string    `json:"unit"` // "lot" | "hour" | "km" など
	Total       float64   `json:"total"`
	Category    string    `json:"category,omitempty"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

// LineItemInput is the request payload for one quote line.
type LineItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Unit        string  `json:"unit"`
	Category    string  `json:"category"`
}
