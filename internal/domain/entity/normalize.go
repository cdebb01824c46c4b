package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawInvoice is a loosely typed record as it arrives from a legacy browser
// export or from the AI extractor. Amount and Confidence may be numbers or
// strings.
type RawInvoice struct {
	ID            string      `json:"id"`
	Vendor        string      `json:"vendor"`
	InvoiceNumber string      `json:"invoiceNumber"`
	Amount        interface{} `json:"amount"`
	Currency      string      `json:"currency"`
	Date          string      `json:"date"`
	DueDate       string      `json:"dueDate"`
	Description   string      `json:"description"`
	Category      string      `json:"category"`
	Status        string      `json:"status"`
	Confidence    interface{} `json:"confidence"`
	AIConfidence  interface{} `json:"aiConfidence"`
	Source        string      `json:"source"`
	FileURL       string      `json:"fileUrl"`
	FileName      string      `json:"fileName"`
	FileSize      int64       `json:"fileSize"`
	CreatedAt     string      `json:"createdAt"`
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02.01.2006",
}

// ParseDate parses an ISO-ish calendar date in any of the layouts seen in
// stored and extracted data.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseAmount converts a number or numeric string to a decimal. Currency
// symbols, thousands separators and whitespace are ignored.
func ParseAmount(v interface{}) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch a := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		d = a
	case float64:
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, a)
		}
		d = decimal.NewFromFloat(a)
	case int:
		d = decimal.NewFromInt(int64(a))
	case int64:
		d = decimal.NewFromInt(a)
	case json.Number:
		parsed, err := decimal.NewFromString(a.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, a.String())
		}
		d = parsed
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "", "€", "", "£", "").Replace(strings.TrimSpace(a))
		if cleaned == "" {
			return decimal.Zero, nil
		}
		parsed, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, a)
		}
		d = parsed
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
	}

	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, d.String())
	}
	return d, nil
}

// ParseConfidence converts a number or numeric string to a 0-100 score.
// ok is false when v carries no usable value, including NaN and infinities.
func ParseConfidence(v interface{}) (int, bool) {
	var f float64
	switch c := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = c
	case int:
		f = float64(c)
	case json.Number:
		parsed, err := c.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(c), "%"), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return ClampConfidence(int(math.Max(0, math.Min(100, f)))), true
}

// ClampConfidence bounds a score to 0-100
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// Normalize converts a raw record into a canonical Invoice for userID.
// It is the only place where defaults, legacy statuses and categories are
// resolved. A non-numeric or negative amount rejects the record.
func Normalize(raw RawInvoice, userID string, now time.Time) (*Invoice, error) {
	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	inv := &Invoice{
		ID:            strings.TrimSpace(raw.ID),
		UserID:        userID,
		Vendor:        strings.TrimSpace(raw.Vendor),
		InvoiceNumber: strings.TrimSpace(raw.InvoiceNumber),
		Amount:        amount,
		Currency:      strings.ToUpper(strings.TrimSpace(raw.Currency)),
		Description:   strings.TrimSpace(raw.Description),
		Category:      NormalizeCategory(raw.Category),
		Status:        NormalizeStatus(raw.Status),
		Source:        strings.TrimSpace(raw.Source),
		FileURL:       strings.TrimSpace(raw.FileURL),
		FileName:      strings.TrimSpace(raw.FileName),
		FileSize:      raw.FileSize,
		UpdatedAt:     now,
	}

	if inv.Vendor == "" {
		inv.Vendor = DefaultVendor
	}
	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = fmt.Sprintf("%s%d", InvoiceNumberPrefix, now.UnixMilli())
	}
	if inv.Currency == "" {
		inv.Currency = DefaultCurrency
	}
	if inv.Source == "" {
		inv.Source = SourceImport
	}

	inv.Date = canonicalDate(raw.Date)
	if inv.Date == "" {
		inv.Date = now.Format(DateLayout)
	}
	inv.DueDate = canonicalDate(raw.DueDate)
	if inv.DueDate == "" {
		inv.DueDate = inv.EffectiveDueDate()
	}

	if c, ok := ParseConfidence(raw.AIConfidence); ok {
		inv.AIConfidence = &c
	} else if c, ok := ParseConfidence(raw.Confidence); ok {
		inv.AIConfidence = &c
	}

	inv.CreatedAt = now
	if t, ok := ParseDate(raw.CreatedAt); ok {
		inv.CreatedAt = t
	}

	return inv, nil
}

// canonicalDate rewrites parseable dates as YYYY-MM-DD and keeps anything
// else verbatim so the aggregation layer can count it as unparseable.
func canonicalDate(s string) string {
	s = strings.TrimSpace(s)
	if t, ok := ParseDate(s); ok {
		return t.Format(DateLayout)
	}
	return s
}
