package production

import "github.com/shopspring/decimal"

// UnitCost computes the production cost of one unit of output:
// Σ(include qty × component landed cost) − Σ(remove qty × remove unit cost).
// Decimal arithmetic keeps the snapshot exact; the result is rounded to four
// decimal places before storage.
func UnitCost(recipe Recipe, landedCosts map[int64]float64) float64 {
	cost := decimal.Zero
	for _, inc := range recipe.Includes {
		cost = cost.Add(decimal.NewFromFloat(inc.QtyPerUnit).Mul(decimal.NewFromFloat(landedCosts[inc.ProductID])))
	}
	for _, rem := range recipe.Removes {
		cost = cost.Sub(decimal.NewFromFloat(rem.QtyPerUnit).Mul(decimal.NewFromFloat(rem.UnitCost)))
	}
	return cost.Round(4).InexactFloat64()
}

// TotalCost multiplies a fixed unit cost by the ordered qty.
func TotalCost(unitCost, qty float64) float64 {
	return decimal.NewFromFloat(unitCost).Mul(decimal.NewFromFloat(qty)).Round(4).InexactFloat64()
}

// RecipeCostPreview summarises a recipe's cost structure for the settings
// screen: gross include cost, remove credit and the net unit cost.
type RecipeCostPreview struct {
	IncludeCost float64 `json:"include_cost"`
	RemoveCost  float64 `json:"remove_cost"`
	NetUnitCost float64 `json:"net_unit_cost"`
}

// PreviewCost computes the cost preview from current landed costs.
func PreviewCost(recipe Recipe, landedCosts map[int64]float64) RecipeCostPreview {
	include := decimal.Zero
	for _, inc := range recipe.Includes {
		include = include.Add(decimal.NewFromFloat(inc.QtyPerUnit).Mul(decimal.NewFromFloat(landedCosts[inc.ProductID])))
	}
	remove := decimal.Zero
	for _, rem := range recipe.Removes {
		remove = remove.Add(decimal.NewFromFloat(rem.QtyPerUnit).Mul(decimal.NewFromFloat(rem.UnitCost)))
	}
	return RecipeCostPreview{
		IncludeCost: include.Round(4).InexactFloat64(),
		RemoveCost:  remove.Round(4).InexactFloat64(),
		NetUnitCost: include.Sub(remove).Round(4).InexactFloat64(),
	}
}
