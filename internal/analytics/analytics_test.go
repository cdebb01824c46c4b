package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

func scenarioRecords() []*entity.Invoice {
	return []*entity.Invoice{
		inv("100", "2024-01-10"),
		inv("200", "2024-02-15"),
		inv("50", "2024-01-20"),
	}
}

func TestSummarize_Scenario(t *testing.T) {
	s := Summarize(scenarioRecords())

	assert.Equal(t, 3, s.TotalCount)
	assert.True(t, dec("350").Equal(s.TotalAmount), "total %s", s.TotalAmount)
	assert.True(t, dec("116.67").Equal(s.AverageAmount), "average %s", s.AverageAmount)
	assert.Equal(t, map[string]int{entity.StatusDraft: 3}, s.ByStatus)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	assert.Equal(t, 0, s.TotalCount)
	assert.True(t, s.TotalAmount.IsZero())
	assert.True(t, s.AverageAmount.IsZero())
	assert.NotNil(t, s.ByStatus)
	assert.Empty(t, s.ByStatus)
}

func TestSummarize_ExactDecimalSum(t *testing.T) {
	records := []*entity.Invoice{inv("0.1", "2024-01-01"), inv("0.2", "2024-01-02")}

	s := Summarize(records)

	assert.Equal(t, "0.3", s.TotalAmount.String())
}

func TestMonthlyBuckets_Scenario(t *testing.T) {
	series := MonthlyBuckets(scenarioRecords(), 2, now)

	require.Len(t, series.Buckets, 2)
	assert.Equal(t, "Jan 2024", series.Buckets[0].Month)
	assert.Equal(t, "2024-01", series.Buckets[0].Key)
	assert.True(t, dec("150").Equal(series.Buckets[0].TotalAmount))
	assert.Equal(t, 2, series.Buckets[0].Count)
	assert.Equal(t, "Feb 2024", series.Buckets[1].Month)
	assert.True(t, dec("200").Equal(series.Buckets[1].TotalAmount))
	assert.Equal(t, 1, series.Buckets[1].Count)
}

func TestMonthlyBuckets_WindowCrossesYear(t *testing.T) {
	series := MonthlyBuckets(nil, 4, now)

	labels := make([]string, 0, len(series.Buckets))
	for _, b := range series.Buckets {
		labels = append(labels, b.Month)
	}
	assert.Equal(t, []string{"Nov 2023", "Dec 2023", "Jan 2024", "Feb 2024"}, labels)
}

func TestMonthlyBuckets_PartitionIdentity(t *testing.T) {
	records := []*entity.Invoice{
		inv("100", "2024-01-10", withStatus(entity.StatusValidated)),
		inv("25.50", "not a date"),
		inv("40", "2023-06-01"),
		inv("10", "2024-02-01"),
		inv("5", ""),
	}

	series := MonthlyBuckets(records, 2, now)

	sum := decimal.Zero
	count := 0
	for _, b := range series.Buckets {
		sum = sum.Add(b.TotalAmount)
		count += b.Count
	}
	sum = sum.Add(series.Unparseable.Amount).Add(series.OutOfRange.Amount)
	count += series.Unparseable.Count + series.OutOfRange.Count

	total := Summarize(records)
	assert.True(t, total.TotalAmount.Equal(sum), "buckets %s vs total %s", sum, total.TotalAmount)
	assert.Equal(t, total.TotalCount, count)
	assert.Equal(t, 2, series.Unparseable.Count)
	assert.True(t, dec("30.5").Equal(series.Unparseable.Amount))
	assert.Equal(t, 1, series.OutOfRange.Count)
	assert.Equal(t, 1, series.Buckets[0].Processed)
	assert.Equal(t, 1, series.Buckets[1].Pending)
}

func TestMonthlyBuckets_ZeroMonths(t *testing.T) {
	series := MonthlyBuckets(scenarioRecords(), 0, now)

	assert.Empty(t, series.Buckets)
	assert.Equal(t, 3, series.OutOfRange.Count)
}

func TestMonthlyBuckets_HugeCountIsClamped(t *testing.T) {
	series := MonthlyBuckets(scenarioRecords(), math.MaxInt, now)

	require.Len(t, series.Buckets, MaxSeriesMonths)
	assert.Equal(t, "2024-02", series.Buckets[len(series.Buckets)-1].Key)

	placed := series.Unparseable.Count + series.OutOfRange.Count
	for _, b := range series.Buckets {
		placed += b.Count
	}
	assert.Equal(t, len(scenarioRecords()), placed)
}

func TestTopEntities(t *testing.T) {
	records := []*entity.Invoice{
		inv("50", "2024-01-01", withVendor("Beta")),
		inv("100", "2024-01-02", withVendor("Acme")),
		inv("50", "2024-01-03", withVendor("Gamma")),
		inv("25", "2024-01-04", withVendor("Beta")),
		inv("75", "2024-01-05", withVendor("Delta")),
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 0, []string{"Acme", "Beta", "Delta", "Gamma"}},
		{"negative limit means all", -1, []string{"Acme", "Beta", "Delta", "Gamma"}},
		{"limited", 2, []string{"Acme", "Beta"}},
		{"limit above size", 10, []string{"Acme", "Beta", "Delta", "Gamma"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopEntities(records, VendorKey, tt.limit)
			names := make([]string, 0, len(got))
			for _, e := range got {
				names = append(names, e.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestTopEntities_TiesKeepFirstEncounter(t *testing.T) {
	records := []*entity.Invoice{
		inv("10", "2024-01-01", withVendor("Zeta")),
		inv("10", "2024-01-02", withVendor("Alpha")),
		inv("10", "2024-01-03", withVendor("Mu")),
	}

	got := TopEntities(records, VendorKey, 0)

	require.Len(t, got, 3)
	assert.Equal(t, "Zeta", got[0].Name)
	assert.Equal(t, "Alpha", got[1].Name)
	assert.Equal(t, "Mu", got[2].Name)
}

func TestTopEntities_CategoryKeyDefaultsToOther(t *testing.T) {
	records := []*entity.Invoice{
		inv("10", "2024-01-01", withCategory("")),
		inv("15", "2024-01-02", withCategory("Uncategorized")),
		inv("5", "2024-01-03", withCategory(entity.CategoryTravel)),
	}

	got := TopEntities(records, CategoryKey, 0)

	require.Len(t, got, 2)
	assert.Equal(t, entity.CategoryOther, got[0].Name)
	assert.Equal(t, 2, got[0].Count)
	assert.True(t, dec("25").Equal(got[0].Amount))
}

func TestConfidenceHistogram(t *testing.T) {
	records := []*entity.Invoice{
		inv("1", "2024-01-01", withConfidence(95)),
		inv("1", "2024-01-01", withConfidence(90)),
		inv("1", "2024-01-01", withConfidence(89)),
		inv("1", "2024-01-01", withConfidence(70)),
		inv("1", "2024-01-01", withConfidence(69)),
		inv("1", "2024-01-01"),
	}

	h := ConfidenceHistogram(records)

	assert.Equal(t, 2, h.High)
	assert.Equal(t, 3, h.Medium)
	assert.Equal(t, 1, h.Low)
	assert.Equal(t, len(records), h.High+h.Medium+h.Low)
	assert.Equal(t, 83.0, h.Average)
}

func TestConfidenceHistogram_Empty(t *testing.T) {
	h := ConfidenceHistogram([]*entity.Invoice{})

	assert.Equal(t, Histogram{}, h)
}

func TestForecastCashFlow(t *testing.T) {
	records := []*entity.Invoice{
		inv("100", "2024-01-10"),
		inv("200.6", "2024-02-15"),
		inv("50", "2024-01-20"),
		inv("99", "garbage"),
	}
	rnd := &sequenceRandom{values: []float64{0, 0.5, 0.999999}}

	points := ForecastCashFlow(records, 6, now, rnd)

	require.Len(t, points, 6)

	assert.Equal(t, "Feb 2024", points[0].Month)
	assert.True(t, points[0].HasActual)
	assert.True(t, dec("201").Equal(points[0].Actual))
	assert.True(t, dec("201").Equal(points[0].Predicted))
	assert.Equal(t, 100, points[0].Confidence)

	// average of 150 and 200.6 is 175.3
	assert.Equal(t, "Mar 2024", points[1].Month)
	assert.False(t, points[1].HasActual)
	assert.True(t, dec("158").Equal(points[1].Predicted), "got %s", points[1].Predicted)
	assert.Equal(t, 90, points[1].Confidence)

	assert.True(t, dec("175").Equal(points[2].Predicted), "got %s", points[2].Predicted)
	assert.Equal(t, 85, points[2].Confidence)

	for i, p := range points[1:] {
		assert.Equal(t, max(60, 95-5*(i+1)), p.Confidence)
		assert.True(t, p.Predicted.GreaterThanOrEqual(dec("158")))
		assert.True(t, p.Predicted.LessThanOrEqual(dec("193")))
	}
}

func TestForecastCashFlow_ConfidenceFloor(t *testing.T) {
	points := ForecastCashFlow([]*entity.Invoice{inv("10", "2020-01-01")}, 12, now, nil)

	require.Len(t, points, 12)
	assert.Equal(t, 95, points[0].Confidence)
	assert.Equal(t, 60, points[7].Confidence)
	assert.Equal(t, 60, points[11].Confidence)
	assert.True(t, dec("10").Equal(points[0].Predicted))
}

func TestForecastCashFlow_Deterministic(t *testing.T) {
	a := ForecastCashFlow(scenarioRecords(), 6, now.AddDate(0, 1, 0), NewSeededRandom(42))
	b := ForecastCashFlow(scenarioRecords(), 6, now.AddDate(0, 1, 0), NewSeededRandom(42))

	assert.Equal(t, a, b)
}

func TestForecastCashFlow_Empty(t *testing.T) {
	assert.Empty(t, ForecastCashFlow(nil, 6, now, nil))
	assert.Empty(t, ForecastCashFlow(scenarioRecords(), 0, now, nil))
}

func TestForecastCashFlow_HugeHorizonIsClamped(t *testing.T) {
	points := ForecastCashFlow(scenarioRecords(), math.MaxInt, now, nil)

	require.Len(t, points, MaxSeriesMonths)
	assert.Equal(t, "2024-02", points[0].Key)
	assert.Equal(t, ForecastMinConfidence, points[len(points)-1].Confidence)
}

func TestEmptyInputShapes(t *testing.T) {
	var empty []*entity.Invoice

	assert.NotPanics(t, func() {
		assert.Len(t, MonthlyBuckets(empty, 6, now).Buckets, 6)
		assert.Empty(t, TopEntities(empty, VendorKey, 5))
		assert.Empty(t, BuildDigest(empty).Lines)
		assert.Empty(t, RuleInsights(BuildDigest(empty)))
		assert.Empty(t, SummaryInsights(BuildDigest(empty)))
		assert.Equal(t, 0, BuildDashboard(empty, now).TotalInvoices)
		assert.Equal(t, 0, BuildReport(empty, ReportQuery{}, now).Summary.TotalCount)
	})
}

func TestRecentInvoices(t *testing.T) {
	a := inv("1", "2024-01-01", withCreatedAt(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	b := inv("2", "2024-02-10")
	c := inv("3", "bad date")
	d := inv("4", "2023-12-31")

	got := RecentInvoices([]*entity.Invoice{c, d, a, b}, 3)

	require.Len(t, got, 3)
	assert.Same(t, b, got[0])
	assert.Same(t, a, got[1])
	assert.Same(t, d, got[2])
}

func TestBuildDashboard(t *testing.T) {
	records := []*entity.Invoice{
		inv("100", "2024-02-01", withStatus(entity.StatusValidated)),
		inv("50", "2024-02-05"),
		inv("25", "2024-01-15", withStatus(entity.StatusExported)),
		inv("25", "2024-01-20", withStatus(entity.StatusError)),
	}

	d := BuildDashboard(records, now)

	assert.Equal(t, 4, d.TotalInvoices)
	assert.Equal(t, 2, d.ProcessedInvoices)
	assert.Equal(t, 2, d.PendingInvoices)
	assert.True(t, dec("200").Equal(d.TotalAmount))
	assert.Equal(t, 2, d.ThisMonthCount)
	assert.Equal(t, 1, d.ProcessedThisMonth)
	assert.Equal(t, 50.0, d.ThisMonthShare)
	assert.Len(t, d.RecentInvoices, 3)
}

func TestFormatMoney(t *testing.T) {
	tests := map[string]string{
		"0":          "$0.00",
		"5.5":        "$5.50",
		"1234.5":     "$1,234.50",
		"1000000":    "$1,000,000.00",
		"116.666667": "$116.67",
		"-42":        "-$42.00",
	}

	for in, want := range tests {
		assert.Equal(t, want, FormatMoney(dec(in)), in)
	}
}
