package analytics

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// Forecast tuning
const (
	ForecastActualConfidence = 100
	ForecastBaseConfidence   = 95
	ForecastConfidenceStep   = 5
	ForecastMinConfidence    = 60
	DefaultForecastHorizon   = 6
)

// RandomSource yields values in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// NewSeededRandom returns a deterministic random source
func NewSeededRandom(seed int64) RandomSource {
	return rand.New(rand.NewSource(seed))
}

// ForecastPoint is the predicted total for one month
type ForecastPoint struct {
	Key        string          `json:"key"`
	Month      string          `json:"month"`
	Predicted  decimal.Decimal `json:"predicted"`
	Actual     decimal.Decimal `json:"actual"`
	HasActual  bool            `json:"has_actual"`
	Confidence int             `json:"confidence"`
}

// ForecastCashFlow predicts monthly totals for horizon months starting with
// now's month. Months that already have recorded spend report it as both
// actual and predicted with full confidence. Other months use the average
// monthly total scaled by a factor in [0.9, 1.1) drawn from rnd; confidence
// decays by five points per month to a floor of 60. Amounts are rounded to
// whole units. A nil rnd uses a factor of 1. horizon is clamped to
// MaxSeriesMonths.
func ForecastCashFlow(records []*entity.Invoice, horizon int, now time.Time, rnd RandomSource) []ForecastPoint {
	records = nonNil(records)
	horizon = min(horizon, MaxSeriesMonths)
	if horizon <= 0 || len(records) == 0 {
		return []ForecastPoint{}
	}

	monthly := make(map[int]decimal.Decimal)
	for _, r := range records {
		t, ok := r.ParsedDate()
		if !ok {
			continue
		}
		idx := monthIndex(t.Year(), t.Month())
		monthly[idx] = monthly[idx].Add(r.Amount)
	}

	avg := decimal.Zero
	if len(monthly) > 0 {
		sum := decimal.Zero
		for _, v := range monthly {
			sum = sum.Add(v)
		}
		avg = sum.Div(decimal.NewFromInt(int64(len(monthly))))
	}

	start := monthIndex(now.Year(), now.Month())
	points := make([]ForecastPoint, 0, horizon)

	for i := 0; i < horizon; i++ {
		y, m := fromMonthIndex(start + i)
		p := ForecastPoint{
			Key:    MonthKey(y, m),
			Month:  MonthLabel(y, m),
			Actual: decimal.Zero,
		}

		if actual := monthly[start+i]; actual.IsPositive() {
			p.Actual = actual.Round(0)
			p.Predicted = p.Actual
			p.HasActual = true
			p.Confidence = ForecastActualConfidence
		} else {
			p.Predicted = avg.Mul(varianceFactor(rnd)).Round(0)
			p.Confidence = max(ForecastMinConfidence, ForecastBaseConfidence-ForecastConfidenceStep*i)
		}

		points = append(points, p)
	}

	return points
}

func varianceFactor(rnd RandomSource) decimal.Decimal {
	r := 0.5
	if rnd != nil {
		r = rnd.Float64()
	}
	return decimal.NewFromFloat(0.9 + r*0.2)
}
