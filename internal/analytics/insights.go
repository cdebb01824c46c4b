package analytics

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// Insight kinds
const (
	InsightTrend          = "trend"
	InsightPrediction     = "prediction"
	InsightAnomaly        = "anomaly"
	InsightRecommendation = "recommendation"
)

// Impact levels
const (
	ImpactHigh   = "high"
	ImpactMedium = "medium"
	ImpactLow    = "low"
)

// Digest limits and thresholds
const (
	DigestLineCount          = 15
	LowConfidenceThreshold   = 80
	aiInsightBaseConfidence  = 85
	aiInsightConfidenceRange = 10
)

var (
	categoryConcentration = decimal.RequireFromString("0.3")
	vendorConcentration   = decimal.RequireFromString("0.25")
)

// Insight is one observation shown on the insights page
type Insight struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Confidence  int    `json:"confidence"`
	Value       string `json:"value,omitempty"`
}

// Digest condenses a user's records into the facts insight generation
// works from.
type Digest struct {
	Summary       Summary      `json:"summary"`
	TopCategory   *EntityTotal `json:"top_category,omitempty"`
	TopVendor     *EntityTotal `json:"top_vendor,omitempty"`
	LowConfidence int          `json:"low_confidence"`
	Lines         []string     `json:"lines"`
}

// BuildDigest summarizes records for insight generation. Lines describe the
// first DigestLineCount records in input order.
func BuildDigest(records []*entity.Invoice) Digest {
	records = nonNil(records)
	d := Digest{
		Summary: Summarize(records),
		Lines:   make([]string, 0, min(len(records), DigestLineCount)),
	}

	if top := TopEntities(records, CategoryKey, 1); len(top) > 0 {
		d.TopCategory = &top[0]
	}
	if top := TopEntities(records, VendorKey, 1); len(top) > 0 {
		d.TopVendor = &top[0]
	}

	for i, r := range records {
		if r.ConfidenceOr(100) < LowConfidenceThreshold {
			d.LowConfidence++
		}
		if i < DigestLineCount {
			conf := "N/A"
			if r.AIConfidence != nil {
				conf = fmt.Sprintf("%d%%", *r.AIConfidence)
			}
			d.Lines = append(d.Lines, fmt.Sprintf("%s: %s (%s) - %s [Confidence: %s]",
				VendorKey(r), FormatMoney(r.Amount), r.Date, CategoryKey(r), conf))
		}
	}

	return d
}

// SummaryInsights are shown before any AI generation has happened
func SummaryInsights(d Digest) []Insight {
	if d.Summary.TotalCount == 0 {
		return []Insight{}
	}

	insights := []Insight{{
		ID:    "summary",
		Kind:  InsightTrend,
		Title: "Invoice Processing Summary",
		Description: fmt.Sprintf("Processed %d invoices with a total value of %s. Average invoice amount is %s.",
			d.Summary.TotalCount, FormatMoney(d.Summary.TotalAmount), FormatMoney(d.Summary.AverageAmount)),
		Impact:     ImpactMedium,
		Confidence: 100,
		Value:      FormatMoney(d.Summary.TotalAmount),
	}}

	if d.TopCategory != nil {
		insights = append(insights, Insight{
			ID:    "top-category",
			Kind:  InsightTrend,
			Title: "Top Spending Category: " + d.TopCategory.Name,
			Description: fmt.Sprintf("%s accounts for %.1f%% of your total spending (%s).",
				d.TopCategory.Name, percent(d.TopCategory.Amount, d.Summary.TotalAmount, 1), FormatMoney(d.TopCategory.Amount)),
			Impact:     ImpactMedium,
			Confidence: 95,
			Value:      FormatMoney(d.TopCategory.Amount),
		})
	}

	return insights
}

// RuleInsights derives deterministic insights about concentration and
// extraction quality. They complement AI insights and replace them when the
// AI service is unavailable.
func RuleInsights(d Digest) []Insight {
	insights := []Insight{}
	total := d.Summary.TotalAmount

	if d.TopCategory != nil && d.TopCategory.Amount.GreaterThan(total.Mul(categoryConcentration)) {
		insights = append(insights, Insight{
			ID:    "category-concentration",
			Kind:  InsightTrend,
			Title: fmt.Sprintf("High %s Spending Detected", d.TopCategory.Name),
			Description: fmt.Sprintf("%s represents %.1f%% of total spending (%s). Review these expenses for savings.",
				d.TopCategory.Name, percent(d.TopCategory.Amount, total, 1), FormatMoney(d.TopCategory.Amount)),
			Impact:     ImpactMedium,
			Confidence: 95,
			Value:      FormatMoney(d.TopCategory.Amount),
		})
	}

	if d.TopVendor != nil && d.TopVendor.Amount.GreaterThan(total.Mul(vendorConcentration)) {
		insights = append(insights, Insight{
			ID:    "vendor-concentration",
			Kind:  InsightAnomaly,
			Title: "Vendor Concentration Risk: " + d.TopVendor.Name,
			Description: fmt.Sprintf("%s accounts for %.1f%% of total spending (%s). Consider diversifying suppliers.",
				d.TopVendor.Name, percent(d.TopVendor.Amount, total, 1), FormatMoney(d.TopVendor.Amount)),
			Impact:     ImpactMedium,
			Confidence: 92,
			Value:      FormatMoney(d.TopVendor.Amount),
		})
	}

	if d.LowConfidence > 0 {
		insights = append(insights, Insight{
			ID:    "low-confidence",
			Kind:  InsightRecommendation,
			Title: "Extraction Accuracy Improvement",
			Description: fmt.Sprintf("%d invoices had low extraction confidence. Improve scan quality or review them manually.",
				d.LowConfidence),
			Impact:     ImpactLow,
			Confidence: 88,
		})
	}

	return insights
}

// ParseInsights reads insights from generated text in the
// TITLE / DESCRIPTION / IMPACT / VALUE line format. Confidence is drawn
// from rnd in [85, 95); a nil rnd gives 85.
func ParseInsights(text string, rnd RandomSource) []Insight {
	insights := []Insight{}
	var current *Insight

	flush := func() {
		if current == nil || current.Title == "" {
			return
		}
		if current.Description == "" {
			current.Description = "AI-generated insight"
		}
		if current.Impact != ImpactHigh && current.Impact != ImpactLow {
			current.Impact = ImpactMedium
		}
		conf := aiInsightBaseConfidence
		if rnd != nil {
			conf += int(rnd.Float64() * aiInsightConfidenceRange)
		}
		current.Confidence = conf
		current.Kind = InsightRecommendation
		current.ID = fmt.Sprintf("ai-%d", len(insights)+1)
		insights = append(insights, *current)
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(raw), "-*#0123456789. "))
		switch {
		case hasField(line, "TITLE:"):
			flush()
			current = &Insight{Title: fieldValue(line, "TITLE:")}
		case current == nil:
			continue
		case hasField(line, "DESCRIPTION:"):
			current.Description = fieldValue(line, "DESCRIPTION:")
		case hasField(line, "IMPACT:"):
			current.Impact = strings.ToLower(fieldValue(line, "IMPACT:"))
		case hasField(line, "VALUE:"):
			current.Value = fieldValue(line, "VALUE:")
		}
	}
	flush()

	return insights
}

func hasField(line, prefix string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.Trim(line, "*")), prefix)
}

func fieldValue(line, prefix string) string {
	line = strings.Trim(line, "*")
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(line[len(prefix):]), "*"))
}

// FormatMoney renders an amount as dollars with thousands separators and
// two decimals, e.g. "$1,234.50".
func FormatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(MoneyPlaces)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String() + frac
}
