package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

func reportRecords() []*entity.Invoice {
	return []*entity.Invoice{
		inv("100", "2024-02-01", withStatus(entity.StatusValidated), withCategory(entity.CategorySoftware)),
		inv("50", "2024-01-15", withVendor("Beta"), withCategory("travel")),
		inv("30", "2023-12-05", withVendor("Beta"), withStatus(entity.StatusApproved), withCategory(entity.CategoryTravel)),
		inv("200", "2023-08-10", withVendor("Old"), withCategory(entity.CategoryMarketing)),
		inv("20", "2022-01-01", withVendor("Ancient")),
	}
}

func TestBuildReport(t *testing.T) {
	r := BuildReport(reportRecords(), ReportQuery{Period: Period3Months}, now)

	assert.Equal(t, ReportQuery{Period: Period3Months, Category: AllCategories}, r.Query)
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, 2024, r.To.Year())
	assert.Equal(t, time.February, r.To.Month())
	assert.Equal(t, 29, r.To.Day())

	assert.Equal(t, 3, r.Summary.TotalCount)
	assert.Equal(t, 2, r.Summary.ProcessedCount)
	assert.True(t, dec("180").Equal(r.Summary.TotalAmount))
	assert.True(t, dec("60").Equal(r.Summary.AverageAmount))
	assert.Equal(t, -10.0, r.Summary.Growth)
	assert.Equal(t, 66.7, r.Summary.ProcessingRate)

	require.Len(t, r.Monthly, 3)
	assert.Equal(t, "Dec 2023", r.Monthly[0].Month)
	assert.True(t, dec("30").Equal(r.Monthly[0].TotalAmount))
	assert.True(t, dec("50").Equal(r.Monthly[1].TotalAmount))
	assert.True(t, dec("100").Equal(r.Monthly[2].TotalAmount))

	require.Len(t, r.Vendors, 2)
	assert.Equal(t, "Acme", r.Vendors[0].Name)
	assert.Equal(t, "Beta", r.Vendors[1].Name)

	require.Len(t, r.Categories, 2)
	assert.Equal(t, entity.CategorySoftware, r.Categories[0].Category)
	assert.Equal(t, entity.CategoryTravel, r.Categories[1].Category)
	assert.Equal(t, 2, r.Categories[1].Count)

	assert.Len(t, r.Records, 3)
}

func TestBuildReport_CategoryFilter(t *testing.T) {
	r := BuildReport(reportRecords(), ReportQuery{Period: Period1Year, Category: "TRAVEL"}, now)

	assert.Equal(t, 2, r.Summary.TotalCount)
	assert.True(t, dec("80").Equal(r.Summary.TotalAmount))
	require.Len(t, r.Categories, 1)
	assert.Equal(t, entity.CategoryTravel, r.Categories[0].Category)
}

func TestBuildReport_UsesCreatedAtForActivity(t *testing.T) {
	records := []*entity.Invoice{
		inv("10", "2019-05-05", withCreatedAt(time.Date(2024, 2, 3, 9, 0, 0, 0, time.UTC))),
	}

	r := BuildReport(records, ReportQuery{Period: Period1Month}, now)

	assert.Equal(t, 1, r.Summary.TotalCount)
	require.Len(t, r.Monthly, 1)
	assert.Equal(t, 1, r.Monthly[0].Count)
}

func TestBuildReport_NoPreviousSpendHasZeroGrowth(t *testing.T) {
	r := BuildReport([]*entity.Invoice{inv("10", "2024-02-02")}, ReportQuery{}, now)

	assert.Equal(t, DefaultPeriod, r.Query.Period)
	assert.Equal(t, 0.0, r.Summary.Growth)
	assert.Len(t, r.Monthly, 6)
}

func TestReportQuery_Normalized(t *testing.T) {
	tests := []struct {
		name string
		in   ReportQuery
		want ReportQuery
	}{
		{"empty", ReportQuery{}, ReportQuery{Period: DefaultPeriod, Category: AllCategories}},
		{"unknown period", ReportQuery{Period: "2weeks", Category: "Travel"}, ReportQuery{Period: DefaultPeriod, Category: "Travel"}},
		{"kept", ReportQuery{Period: Period1Year, Category: "all"}, ReportQuery{Period: Period1Year, Category: AllCategories}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalized())
		})
	}
}

func TestCategoryBreakdown_Order(t *testing.T) {
	records := []*entity.Invoice{
		inv("5", "2024-01-01", withCategory("Legal")),
		inv("7", "2024-01-01", withCategory(entity.CategoryUtilities)),
		inv("9", "2024-01-01", withCategory("")),
		inv("1", "2024-01-01", withCategory(entity.CategoryOfficeSupplies)),
		inv("0", "2024-01-01", withCategory(entity.CategoryTravel)),
	}

	rows := CategoryBreakdown(records)

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Category)
	}
	assert.Equal(t, []string{entity.CategoryOfficeSupplies, entity.CategoryUtilities, entity.CategoryOther, "Legal"}, names)
}
