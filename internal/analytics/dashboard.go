package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// RecentInvoiceCount is the number of invoices shown on the dashboard
const RecentInvoiceCount = 3

// Dashboard holds the stat cards and recent activity of the home screen
type Dashboard struct {
	TotalInvoices       int               `json:"total_invoices"`
	ProcessedInvoices   int               `json:"processed_invoices"`
	PendingInvoices     int               `json:"pending_invoices"`
	TotalAmount         decimal.Decimal   `json:"total_amount"`
	ThisMonthCount      int               `json:"this_month_count"`
	ProcessedThisMonth  int               `json:"processed_this_month"`
	ThisMonthShare      float64           `json:"this_month_share"`
	PendingShare        float64           `json:"pending_share"`
	RecentInvoices      []*entity.Invoice `json:"recent_invoices"`
	ConfidenceHistogram Histogram         `json:"confidence_histogram"`
}

// BuildDashboard computes the dashboard for the records of one user
func BuildDashboard(records []*entity.Invoice, now time.Time) Dashboard {
	records = nonNil(records)
	d := Dashboard{
		TotalInvoices:       len(records),
		TotalAmount:         sumAmounts(records),
		RecentInvoices:      RecentInvoices(records, RecentInvoiceCount),
		ConfidenceHistogram: ConfidenceHistogram(records),
	}

	current := monthIndex(now.Year(), now.Month())
	for _, r := range records {
		if r.IsProcessed() {
			d.ProcessedInvoices++
		} else {
			d.PendingInvoices++
		}

		t, ok := r.ActivityTime()
		if ok && monthIndex(t.Year(), t.Month()) == current {
			d.ThisMonthCount++
			if r.IsProcessed() {
				d.ProcessedThisMonth++
			}
		}
	}

	total := decimal.NewFromInt(int64(d.TotalInvoices))
	d.ThisMonthShare = percent(decimal.NewFromInt(int64(d.ThisMonthCount)), total, 0)
	d.PendingShare = percent(decimal.NewFromInt(int64(d.PendingInvoices)), total, 0)
	return d
}

// RecentInvoices returns up to n records ordered by activity time, newest
// first. Records without a usable time sort last.
func RecentInvoices(records []*entity.Invoice, n int) []*entity.Invoice {
	sorted := nonNil(records)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, oki := sorted[i].ActivityTime()
		tj, okj := sorted[j].ActivityTime()
		if oki != okj {
			return oki
		}
		return ti.After(tj)
	})

	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
