package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-insights/internal/domain/entity"
)

// KeyFunc extracts the grouping key of a record
type KeyFunc func(r *entity.Invoice) string

// EntityTotal is the summed amount of the records sharing one key
type EntityTotal struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// VendorKey groups by vendor name as stored
func VendorKey(r *entity.Invoice) string {
	v := strings.TrimSpace(r.Vendor)
	if v == "" {
		return entity.DefaultVendor
	}
	return v
}

// CategoryKey groups by category, with absent categories counted as Other
func CategoryKey(r *entity.Invoice) string {
	return entity.NormalizeCategory(r.Category)
}

// TopEntities groups records by key and returns the groups ordered by summed
// amount, largest first. Ties keep first-encounter order. A limit <= 0
// returns every group.
func TopEntities(records []*entity.Invoice, key KeyFunc, limit int) []EntityTotal {
	index := make(map[string]int)
	totals := make([]EntityTotal, 0)

	for _, r := range records {
		if r == nil {
			continue
		}
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(totals)
			index[k] = i
			totals = append(totals, EntityTotal{Name: k, Amount: decimal.Zero})
		}
		totals[i].Amount = totals[i].Amount.Add(r.Amount)
		totals[i].Count++
	}

	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Amount.GreaterThan(totals[j].Amount)
	})

	if limit > 0 && len(totals) > limit {
		totals = totals[:limit]
	}
	return totals
}
