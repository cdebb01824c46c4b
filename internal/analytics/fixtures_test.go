package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

var now = time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC)

type invoiceOpt func(*entity.Invoice)

func withStatus(s string) invoiceOpt { return func(i *entity.Invoice) { i.Status = s } }

func withCategory(c string) invoiceOpt { return func(i *entity.Invoice) { i.Category = c } }

func withVendor(v string) invoiceOpt { return func(i *entity.Invoice) { i.Vendor = v } }

func withDescription(d string) invoiceOpt { return func(i *entity.Invoice) { i.Description = d } }

func withConfidence(c int) invoiceOpt { return func(i *entity.Invoice) { i.AIConfidence = &c } }

func withCreatedAt(t time.Time) invoiceOpt { return func(i *entity.Invoice) { i.CreatedAt = t } }

// inv builds a fixture record. CreatedAt stays zero unless set so that
// activity time falls back to the invoice date.
func inv(amount string, date string, opts ...invoiceOpt) *entity.Invoice {
	i := &entity.Invoice{
		ID:       "inv-" + amount + "-" + date,
		UserID:   "user-1",
		Vendor:   "Acme",
		Amount:   decimal.RequireFromString(amount),
		Date:     date,
		Category: entity.CategoryOther,
		Status:   entity.StatusDraft,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// sequenceRandom returns its values in order, repeating the last one
type sequenceRandom struct {
	values []float64
	next   int
}

func (s *sequenceRandom) Float64() float64 {
	v := s.values[s.next]
	if s.next < len(s.values)-1 {
		s.next++
	}
	return v
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
