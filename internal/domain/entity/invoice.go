package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical storage layout for invoice and due dates
const DateLayout = "2006-01-02"

// Invoice is a single invoice record owned by one user
type Invoice struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Vendor        string          `json:"vendor"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Date          string          `json:"date"`
	DueDate       string          `json:"due_date,omitempty"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category"`
	Status        string          `json:"status"`
	AIConfidence  *int            `json:"ai_confidence,omitempty"`
	Source        string          `json:"source"`
	FileURL       string          `json:"file_url,omitempty"`
	FileKey       string          `json:"-"`
	FileName      string          `json:"file_name,omitempty"`
	FileSize      int64           `json:"file_size,omitempty"`
	FileType      string          `json:"file_type,omitempty"`
	ExtractedData string          `json:"extracted_data,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ParsedDate parses the invoice date. ok is false when the stored value is
// not a recognizable calendar date.
func (i *Invoice) ParsedDate() (time.Time, bool) {
	return ParseDate(i.Date)
}

// ActivityTime is the time used for period filters and recency ordering:
// the creation time when set, otherwise the invoice date.
func (i *Invoice) ActivityTime() (time.Time, bool) {
	if !i.CreatedAt.IsZero() {
		return i.CreatedAt, true
	}
	return i.ParsedDate()
}

// ConfidenceOr returns the AI confidence or def when unknown
func (i *Invoice) ConfidenceOr(def int) int {
	if i.AIConfidence == nil {
		return def
	}
	return *i.AIConfidence
}

// EffectiveDueDate returns the due date, defaulting to the invoice date plus
// DefaultDueDays when absent.
func (i *Invoice) EffectiveDueDate() string {
	if i.DueDate != "" {
		return i.DueDate
	}
	d, ok := i.ParsedDate()
	if !ok {
		return ""
	}
	return d.AddDate(0, 0, DefaultDueDays).Format(DateLayout)
}

// IsProcessed reports whether the invoice counts as processed
func (i *Invoice) IsProcessed() bool {
	return IsProcessedStatus(i.Status)
}

// InvoicePatch holds user edits from the data editor. Nil fields are left
// unchanged.
type InvoicePatch struct {
	Vendor        *string          `json:"vendor,omitempty" validate:"omitempty,min=1,max=200"`
	InvoiceNumber *string          `json:"invoice_number,omitempty" validate:"omitempty,max=100"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	Date          *string          `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DueDate       *string          `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category      *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	AIConfidence  *int             `json:"ai_confidence,omitempty" validate:"omitempty,min=0,max=100"`
}

// Apply copies the set fields of p onto inv
func (p *InvoicePatch) Apply(inv *Invoice) {
	if p.Vendor != nil {
		inv.Vendor = *p.Vendor
	}
	if p.InvoiceNumber != nil {
		inv.InvoiceNumber = *p.InvoiceNumber
	}
	if p.Amount != nil {
		inv.Amount = *p.Amount
	}
	if p.Currency != nil {
		inv.Currency = *p.Currency
	}
	if p.Date != nil {
		inv.Date = *p.Date
	}
	if p.DueDate != nil {
		inv.DueDate = *p.DueDate
	}
	if p.Description != nil {
		inv.Description = *p.Description
	}
	if p.Category != nil {
		inv.Category = *p.Category
	}
	if p.AIConfidence != nil {
		c := *p.AIConfidence
		inv.AIConfidence = &c
	}
}

// InvoiceFilter narrows a list query. UserID is mandatory.
type InvoiceFilter struct {
	UserID   string
	Statuses []string
	Category string
	Search   string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}
