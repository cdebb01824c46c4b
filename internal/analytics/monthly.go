package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// MonthlyBucket aggregates the records of one calendar month
type MonthlyBucket struct {
	Key         string          `json:"key"`
	Month       string          `json:"month"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Count       int             `json:"count"`
	Processed   int             `json:"processed"`
	Pending     int             `json:"pending"`
}

// Tally counts records excluded from the monthly buckets
type Tally struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthlySeries is a window of consecutive months, oldest first. Records
// that could not be placed in a bucket are reported separately so that the
// buckets, Unparseable and OutOfRange together account for every record.
type MonthlySeries struct {
	Buckets     []MonthlyBucket `json:"buckets"`
	Unparseable Tally           `json:"unparseable"`
	OutOfRange  Tally           `json:"out_of_range"`
}

// MaxSeriesMonths bounds the length of any month series the engine builds.
// Larger monthCount or horizon arguments are clamped to it.
const MaxSeriesMonths = 1200

// MonthKey formats the bucket key for a year and month, e.g. "2024-01"
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// MonthLabel formats the display label for a year and month, e.g. "Jan 2024"
func MonthLabel(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// MonthlyBuckets groups records by invoice date into the monthCount months
// ending with the month of now. A monthCount <= 0 yields no buckets; counts
// above MaxSeriesMonths are clamped.
func MonthlyBuckets(records []*entity.Invoice, monthCount int, now time.Time) MonthlySeries {
	return bucketByMonth(records, monthCount, now, func(r *entity.Invoice) (time.Time, bool) {
		return r.ParsedDate()
	})
}

type timeFunc func(r *entity.Invoice) (time.Time, bool)

func bucketByMonth(records []*entity.Invoice, monthCount int, now time.Time, at timeFunc) MonthlySeries {
	monthCount = min(max(monthCount, 0), MaxSeriesMonths)
	series := MonthlySeries{
		Buckets:     make([]MonthlyBucket, 0, monthCount),
		Unparseable: Tally{Amount: decimal.Zero},
		OutOfRange:  Tally{Amount: decimal.Zero},
	}

	end := monthIndex(now.Year(), now.Month())
	start := end - monthCount + 1

	for i := start; i <= end; i++ {
		y, m := fromMonthIndex(i)
		series.Buckets = append(series.Buckets, MonthlyBucket{
			Key:         MonthKey(y, m),
			Month:       MonthLabel(y, m),
			TotalAmount: decimal.Zero,
		})
	}

	for _, r := range records {
		if r == nil {
			continue
		}
		t, ok := at(r)
		if !ok {
			series.Unparseable.Count++
			series.Unparseable.Amount = series.Unparseable.Amount.Add(r.Amount)
			continue
		}

		idx := monthIndex(t.Year(), t.Month())
		if monthCount <= 0 || idx < start || idx > end {
			series.OutOfRange.Count++
			series.OutOfRange.Amount = series.OutOfRange.Amount.Add(r.Amount)
			continue
		}

		b := &series.Buckets[idx-start]
		b.TotalAmount = b.TotalAmount.Add(r.Amount)
		b.Count++
		if r.IsProcessed() {
			b.Processed++
		} else {
			b.Pending++
		}
	}

	return series
}

func monthIndex(year int, month time.Month) int {
	return year*12 + int(month) - 1
}

func fromMonthIndex(i int) (int, time.Month) {
	return i / 12, time.Month(i%12 + 1)
}

// startOfMonthsAgo returns the first instant of the month n-1 months before
// now's month, in now's location.
func startOfMonthsAgo(now time.Time, n int) time.Time {
	return time.Date(now.Year(), now.Month()-time.Month(n-1), 1, 0, 0, 0, 0, now.Location())
}

// endOfMonth returns the last instant of now's month
func endOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location()).Add(-time.Nanosecond)
}
