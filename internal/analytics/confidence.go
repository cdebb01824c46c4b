package analytics

import (
	"math"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// DefaultConfidence is assumed for records without an AI confidence score
const DefaultConfidence = 85

// Confidence band boundaries
const (
	HighConfidenceMin   = 90
	MediumConfidenceMin = 70
)

// Histogram counts records per confidence band
type Histogram struct {
	High    int     `json:"high"`
	Medium  int     `json:"medium"`
	Low     int     `json:"low"`
	Total   int     `json:"total"`
	Average float64 `json:"average"`
}

// ConfidenceHistogram buckets records into high (>= 90), medium (70-89) and
// low (< 70) confidence. Records without a score count as DefaultConfidence.
func ConfidenceHistogram(records []*entity.Invoice) Histogram {
	var h Histogram
	sum := 0

	for _, r := range records {
		if r == nil {
			continue
		}
		c := r.ConfidenceOr(DefaultConfidence)
		sum += c
		h.Total++

		switch {
		case c >= HighConfidenceMin:
			h.High++
		case c >= MediumConfidenceMin:
			h.Medium++
		default:
			h.Low++
		}
	}

	if h.Total > 0 {
		h.Average = math.Round(float64(sum)/float64(h.Total)*100) / 100
	}
	return h
}
