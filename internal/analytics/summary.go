// Package analytics derives dashboard, report and insight views from a list
// of invoice records. Every function is pure: results depend only on the
// records and the explicit now and random source arguments.
package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// MoneyPlaces is the number of decimal places used for derived amounts
const MoneyPlaces = 2

// Summary holds the totals over a set of records
type Summary struct {
	TotalCount    int             `json:"total_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AverageAmount decimal.Decimal `json:"average_amount"`
	ByStatus      map[string]int  `json:"by_status"`
}

// Summarize counts records and sums their amounts. The average is rounded to
// two places and is zero for empty input.
func Summarize(records []*entity.Invoice) Summary {
	s := Summary{
		TotalAmount:   decimal.Zero,
		AverageAmount: decimal.Zero,
		ByStatus:      make(map[string]int),
	}

	for _, r := range records {
		if r == nil {
			continue
		}
		s.TotalCount++
		s.TotalAmount = s.TotalAmount.Add(r.Amount)
		s.ByStatus[r.Status]++
	}

	s.AverageAmount = average(s.TotalAmount, s.TotalCount)
	return s
}

func sumAmounts(records []*entity.Invoice) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

func average(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count))).Round(MoneyPlaces)
}

// percent returns part/whole*100 rounded to places, or zero when whole is zero
func percent(part, whole decimal.Decimal, places int32) float64 {
	if whole.IsZero() {
		return 0
	}
	f, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Round(places).Float64()
	return f
}

func nonNil(records []*entity.Invoice) []*entity.Invoice {
	out := make([]*entity.Invoice, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
