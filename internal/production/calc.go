package production

import "math"

// ProducibleQty computes the maximum units of output the current stock of
// the recipe's include components supports: floor(min over includes of
// on_hand / qty_per_unit). A recipe with no includes yields 0 (nothing can
// be manufactured from nothing), and an include with unknown or zero stock
// yields 0 rather than guessing optimistically.
//
// The result is an upper bound for one product evaluated in isolation; it
// deliberately ignores other products in the same request competing for the
// same raw material. Cross-product accounting belongs to the batch
// validator.
func ProducibleQty(recipe Recipe, onHand map[int64]float64) int64 {
	if len(recipe.Includes) == 0 {
		return 0
	}
	producible := math.MaxFloat64
	for _, inc := range recipe.Includes {
		if inc.QtyPerUnit <= 0 {
			return 0
		}
		available := onHand[inc.ProductID]
		if available <= 0 {
			return 0
		}
		if units := available / inc.QtyPerUnit; units < producible {
			producible = units
		}
	}
	return int64(math.Floor(producible))
}
