package documents

import (
	"freshdock/models"

	"github.com/shopspring/decimal"
)

// LineWeight is quantity x unit weight when the unit weight is positive,
// otherwise the stored aggregate when it is not negative. The second result
// is false when neither applies.
func LineWeight(item models.DispatchItem) (decimal.Decimal, bool) {
	if item.UnitWeightKg.Valid && item.UnitWeightKg.Decimal.IsPositive() && item.Quantity > 0 {
		return item.UnitWeightKg.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))), true
	}
	if item.TotalWeightKg.Valid && !item.TotalWeightKg.Decimal.IsNegative() {
		return item.TotalWeightKg.Decimal, true
	}
	return decimal.Zero, false
}

type Totals struct {
	Quantity int
	Weight   decimal.Decimal
	// Weighed counts lines that contributed a weight.
	Weighed int
}

func ComputeTotals(items []models.DispatchItem) Totals {
	t := Totals{Weight: decimal.Zero}
	for _, item := range items {
		if item.Quantity > 0 {
			t.Quantity += item.Quantity
		}
		if w, ok := LineWeight(item); ok {
			t.Weight = t.Weight.Add(w)
			t.Weighed++
		}
	}
	return t
}
