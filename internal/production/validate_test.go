package production

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregateDemandSumsAcrossLines(t *testing.T) {
	recipes := map[int64]Recipe{
		100: {ProductID: 100, Includes: []RecipeInclude{{ProductID: 1, QtyPerUnit: 3}}},
		101: {ProductID: 101, Includes: []RecipeInclude{{ProductID: 1, QtyPerUnit: 4}, {ProductID: 2, QtyPerUnit: 1}}},
	}
	lines := []DemandLine{
		{ProductID: 100, Qty: 1},
		{ProductID: 101, Qty: 1},
	}

	demand := AggregateDemand(lines, recipes)
	require.InDelta(t, 7.0, demand[1], 1e-9)
	require.InDelta(t, 1.0, demand[2], 1e-9)
}

func TestAggregateDemandSkipsLinesWithoutRecipe(t *testing.T) {
	recipes := map[int64]Recipe{
		100: {ProductID: 100, Includes: []RecipeInclude{{ProductID: 1, QtyPerUnit: 2}}},
	}
	demand := AggregateDemand([]DemandLine{{ProductID: 100, Qty: 2}, {ProductID: 999, Qty: 5}}, recipes)
	require.Len(t, demand, 1)
	require.InDelta(t, 4.0, demand[1], 1e-9)
}

func TestCheckShortfallsReportsAllOrderedByCode(t *testing.T) {
	demand := map[int64]float64{1: 7, 2: 3, 3: 1}
	onHand := map[int64]float64{1: 6, 2: 3, 3: 0}
	codes := map[int64]string{1: "RM-SUGAR", 2: "RM-FLOUR", 3: "RM-BUTTER"}

	shortfalls := CheckShortfalls(demand, onHand, codes)
	require.Len(t, shortfalls, 2)
	require.Equal(t, "RM-BUTTER", shortfalls[0].ProductCode)
	require.Equal(t, "RM-SUGAR", shortfalls[1].ProductCode)
	require.InDelta(t, 7.0, shortfalls[1].Needed, 1e-9)
	require.InDelta(t, 6.0, shortfalls[1].Available, 1e-9)
}

func TestCheckShortfallsToleratesFloatNoise(t *testing.T) {
	demand := map[int64]float64{1: 0.3}
	onHand := map[int64]float64{1: 0.1 + 0.2}
	require.Empty(t, CheckShortfalls(demand, onHand, nil))
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{Shortfalls: []Shortfall{
		{ProductID: 1, ProductCode: "RM-SUGAR", Needed: 12, Available: 10},
	}}
	require.Contains(t, err.Error(), "RM-SUGAR")
	require.Contains(t, err.Error(), "12")
	require.Contains(t, err.Error(), "10")
}
