package production

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProducibleQtyFloorsMinimum(t *testing.T) {
	recipe := Recipe{
		ProductID: 100,
		Includes: []RecipeInclude{
			{ProductID: 1, QtyPerUnit: 2},
			{ProductID: 2, QtyPerUnit: 0.5},
		},
	}
	onHand := map[int64]float64{1: 10, 2: 2.4}

	// 10/2 = 5 but 2.4/0.5 = 4.8 caps it at 4.
	require.Equal(t, int64(4), ProducibleQty(recipe, onHand))
}

func TestProducibleQtyZeroCases(t *testing.T) {
	recipe := Recipe{
		ProductID: 100,
		Includes:  []RecipeInclude{{ProductID: 1, QtyPerUnit: 2}},
	}

	require.Equal(t, int64(0), ProducibleQty(Recipe{ProductID: 100}, map[int64]float64{1: 10}), "no includes")
	require.Equal(t, int64(0), ProducibleQty(recipe, map[int64]float64{}), "no stock")
	require.Equal(t, int64(0), ProducibleQty(recipe, map[int64]float64{1: 1.9}), "below one unit")
}

func TestProducibleQtyMalformedLineYieldsZero(t *testing.T) {
	recipe := Recipe{
		ProductID: 100,
		Includes: []RecipeInclude{
			{ProductID: 1, QtyPerUnit: 2},
			{ProductID: 2, QtyPerUnit: 0},
		},
	}
	require.Equal(t, int64(0), ProducibleQty(recipe, map[int64]float64{1: 10, 2: 8}))
}
