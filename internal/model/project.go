package model

import "time"

// Status はプロジェクトのライフサイクル状態
type Status string

const (
	StatusRFQSubmitted   Status = "rfq_submitted"
	StatusUnderReview    Status = "under_review"
	StatusQuoted         Status = "quoted"
	StatusQuoteAccepted  Status = "quote_accepted"
	StatusQuoteRejected  Status = "quote_rejected"
	StatusInProgress     Status = "in_progress"
	StatusDataProcessing Status = "data_processing"
	StatusReporting      Status = "reporting"
	StatusDelivered      Status = "delivered"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// Transitions は各状態から遷移可能な状態の一覧。
// completed / cancelled は終端状態で出口エッジを持たない。
var Transitions = map[Status][]Status{
	StatusRFQSubmitted:   {StatusUnderReview, StatusCancelled},
	StatusUnderReview:    {StatusQuoted, StatusCancelled},
	StatusQuoted:         {StatusQuoteAccepted, StatusQuoteRejected, StatusCancelled},
	StatusQuoteAccepted:  {StatusInProgress, StatusCancelled},
	StatusQuoteRejected:  {StatusUnderReview, StatusCancelled},
	StatusInProgress:     {StatusDataProcessing, StatusReporting, StatusDelivered, StatusCompleted, StatusCancelled},
	StatusDataProcessing: {StatusReporting, StatusDelivered, StatusCompleted, StatusCancelled},
	StatusReporting:      {StatusDelivered, StatusCompleted, StatusCancelled},
	StatusDelivered:      {StatusCompleted, StatusCancelled},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// Valid reports whether s is a member of the status enumeration.
func (s Status) Valid() bool {
	_, ok := Transitions[s]
	return ok
}

// Terminal reports whether s accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether s → target is an allowed edge.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range Transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Project は依頼（RFQ）から納品まで追跡する測量案件
type Project struct {
	ID              string `json:"id"`
	ClientID        string `json:"client_id"`
	ClientName      string `json:"client_name"`
	ClientEmail     string `json:"client_email"`
	ClientPhone     string `json:"client_phone,omitempty"`
	Parish          string `json:"parish"`
	PropertyAddress string `json:"property_address"`
	SurveyType      string `json:"survey_type"`
	Description     string `json:"description,omitempty"`
	Status          Status `json:"status"`

	// 見積金額（JMD。total_usd のみ固定レート換算の USD）
	Subtotal          float64 `json:"subtotal"`
	Discount          float64 `json:"discount"`
	Total             float64 `json:"total"`
	TotalUSD          float64 `json:"total_usd"`
	PrepaymentPercent float64 `json:"prepayment_percent"`
	PrepaymentAmount  float64 `json:"prepayment_amount"`
	BalancePercent    float64 `json:"balance_percent"`
	BalanceAmount     float64 `json:"balance_amount"`

	QuotedAt    *time.Time `json:"quoted_at,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Featured   bool       `json:"featured"`
	FeaturedAt *time.Time `json:"featured_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Transient: populated by the detail query, not stored on the projects row
	LineItems  []*LineItem `json:"line_items,omitempty"`
	Activities []*Activity `json:"activities,omitempty"`
	Messages   []*Message  `json:"messages,omitempty"`
	Media      []*Media    `json:"media,omitempty"`
}
