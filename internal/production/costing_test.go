package production

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnitCostSubtractsRemoveCredit(t *testing.T) {
	recipe := Recipe{
		ProductID: 100,
		Includes:  []RecipeInclude{{ProductID: 1, QtyPerUnit: 2}},
		Removes:   []RecipeRemove{{ProductID: 2, QtyPerUnit: 1, UnitCost: 5}},
	}
	landed := map[int64]float64{1: 3}

	// 2×3 consumed minus 1×5 returned.
	require.InDelta(t, 1.0, UnitCost(recipe, landed), 1e-9)
	require.InDelta(t, 5.0, TotalCost(UnitCost(recipe, landed), 5), 1e-9)
}

func TestUnitCostUsesRecipeFixedRemoveCost(t *testing.T) {
	recipe := Recipe{
		ProductID: 100,
		Includes:  []RecipeInclude{{ProductID: 1, QtyPerUnit: 1}},
		Removes:   []RecipeRemove{{ProductID: 2, QtyPerUnit: 1, UnitCost: 2}},
	}
	// Landed cost of the byproduct is present but must be ignored.
	landed := map[int64]float64{1: 10, 2: 99}
	require.InDelta(t, 8.0, UnitCost(recipe, landed), 1e-9)
}

func TestUnitCostCanGoNegative(t *testing.T) {
	recipe := Recipe{
		ProductID: 100,
		Includes:  []RecipeInclude{{ProductID: 1, QtyPerUnit: 1}},
		Removes:   []RecipeRemove{{ProductID: 2, QtyPerUnit: 2, UnitCost: 4}},
	}
	landed := map[int64]float64{1: 3}
	require.InDelta(t, -5.0, UnitCost(recipe, landed), 1e-9)
}

func TestPreviewCostBreaksDownComponents(t *testing.T) {
	recipe := Recipe{
		ProductID: 100,
		Includes: []RecipeInclude{
			{ProductID: 1, QtyPerUnit: 2},
			{ProductID: 2, QtyPerUnit: 0.5},
		},
		Removes: []RecipeRemove{{ProductID: 3, QtyPerUnit: 1, UnitCost: 1.5}},
	}
	landed := map[int64]float64{1: 3, 2: 4}

	preview := PreviewCost(recipe, landed)
	require.InDelta(t, 8.0, preview.IncludeCost, 1e-9)
	require.InDelta(t, 1.5, preview.RemoveCost, 1e-9)
	require.InDelta(t, 6.5, preview.NetUnitCost, 1e-9)
}
