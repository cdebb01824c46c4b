package analytics

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// Period presets accepted by BuildReport
const (
	Period1Month  = "1month"
	Period3Months = "3months"
	Period6Months = "6months"
	Period1Year   = "1year"

	DefaultPeriod   = Period6Months
	AllCategories   = "all"
	ReportTopVendor = 8
	growthLookback  = 6
)

var periodMonths = map[string]int{
	Period1Month:  1,
	Period3Months: 3,
	Period6Months: 6,
	Period1Year:   12,
}

// PeriodMonths returns the number of months covered by a period preset and
// whether the preset is known.
func PeriodMonths(period string) (int, bool) {
	n, ok := periodMonths[period]
	return n, ok
}

// ReportQuery selects the records a report covers
type ReportQuery struct {
	Period   string `form:"period" json:"period"`
	Category string `form:"category" json:"category"`
}

// Normalized fills defaults for empty or unknown values
func (q ReportQuery) Normalized() ReportQuery {
	if _, ok := periodMonths[q.Period]; !ok {
		q.Period = DefaultPeriod
	}
	if strings.TrimSpace(q.Category) == "" {
		q.Category = AllCategories
	}
	return q
}

// CategoryAmount is one row of the category breakdown
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
}

// ReportSummary holds the headline figures of a report
type ReportSummary struct {
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalCount     int             `json:"total_count"`
	ProcessedCount int             `json:"processed_count"`
	AverageAmount  decimal.Decimal `json:"average_amount"`
	Growth         float64         `json:"growth"`
	ProcessingRate float64         `json:"processing_rate"`
}

// Report is the full reports page payload
type Report struct {
	Query      ReportQuery       `json:"query"`
	From       time.Time         `json:"from"`
	To         time.Time         `json:"to"`
	Monthly    []MonthlyBucket   `json:"monthly"`
	Vendors    []EntityTotal     `json:"vendors"`
	Categories []CategoryAmount  `json:"categories"`
	Summary    ReportSummary     `json:"summary"`
	Records    []*entity.Invoice `json:"-"`
}

// PeriodWindow returns the first and last instants covered by a period
// preset relative to now.
func PeriodWindow(period string, now time.Time) (time.Time, time.Time) {
	n, ok := periodMonths[period]
	if !ok {
		n = periodMonths[DefaultPeriod]
	}
	return startOfMonthsAgo(now, n), endOfMonth(now)
}

// FilterForReport returns the records whose activity time falls in the
// query's window and whose category matches.
func FilterForReport(records []*entity.Invoice, q ReportQuery, now time.Time) []*entity.Invoice {
	q = q.Normalized()
	from, to := PeriodWindow(q.Period, now)
	category := ""
	if q.Category != AllCategories {
		category = entity.NormalizeCategory(q.Category)
	}

	out := make([]*entity.Invoice, 0)
	for _, r := range records {
		if r == nil {
			continue
		}
		if !activeWithin(r, from, to) {
			continue
		}
		if category != "" && CategoryKey(r) != category {
			continue
		}
		out = append(out, r)
	}
	return out
}

// BuildReport computes the reports page for the records of one user.
// Growth compares the filtered total with all records active in the six
// months before the window.
func BuildReport(records []*entity.Invoice, q ReportQuery, now time.Time) Report {
	q = q.Normalized()
	n := periodMonths[q.Period]
	from, to := PeriodWindow(q.Period, now)
	filtered := FilterForReport(records, q, now)

	monthly := bucketByMonth(filtered, n, now, (*entity.Invoice).ActivityTime)

	total := sumAmounts(filtered)
	processed := 0
	for _, r := range filtered {
		if r.IsProcessed() {
			processed++
		}
	}

	prevFrom := from.AddDate(0, -growthLookback, 0)
	previous := decimal.Zero
	for _, r := range records {
		if r != nil && activeWithin(r, prevFrom, from) {
			previous = previous.Add(r.Amount)
		}
	}

	return Report{
		Query:      q,
		From:       from,
		To:         to,
		Monthly:    monthly.Buckets,
		Vendors:    TopEntities(filtered, VendorKey, ReportTopVendor),
		Categories: CategoryBreakdown(filtered),
		Summary: ReportSummary{
			TotalAmount:    total,
			TotalCount:     len(filtered),
			ProcessedCount: processed,
			AverageAmount:  average(total, len(filtered)),
			Growth:         percent(total.Sub(previous), previous, 1),
			ProcessingRate: percent(decimal.NewFromInt(int64(processed)), decimal.NewFromInt(int64(len(filtered))), 1),
		},
		Records: filtered,
	}
}

// CategoryBreakdown sums records per report category in the fixed display
// order. Categories outside the fixed set are appended after it. Rows with
// a zero amount are omitted.
func CategoryBreakdown(records []*entity.Invoice) []CategoryAmount {
	totals := TopEntities(records, CategoryKey, 0)
	byName := make(map[string]EntityTotal, len(totals))
	for _, t := range totals {
		byName[t.Name] = t
	}

	rows := make([]CategoryAmount, 0, len(totals))
	seen := make(map[string]bool)
	appendRow := func(t EntityTotal) {
		seen[t.Name] = true
		if t.Amount.IsPositive() {
			rows = append(rows, CategoryAmount{Category: t.Name, Amount: t.Amount, Count: t.Count})
		}
	}

	for _, c := range entity.ReportCategories {
		if t, ok := byName[c]; ok {
			appendRow(t)
		}
	}
	for _, t := range totals {
		if !seen[t.Name] {
			appendRow(t)
		}
	}
	return rows
}

func activeWithin(r *entity.Invoice, from, to time.Time) bool {
	t, ok := r.ActivityTime()
	if !ok {
		return false
	}
	return !t.Before(from) && !t.After(to)
}
