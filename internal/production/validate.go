package production

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// AggregateDemand explodes every line's recipe include list, multiplies by
// the requested qty and accumulates into one demand map keyed by component
// product id. Two lines consuming the same raw material sum up; evaluating
// them independently would miss exactly the contention this map exists to
// catch. Lines whose product has no recipe contribute nothing; such lines
// are screened out earlier by lifecycle validation.
func AggregateDemand(lines []DemandLine, recipes map[int64]Recipe) map[int64]float64 {
	demand := make(map[int64]float64)
	for _, line := range lines {
		recipe, ok := recipes[line.ProductID]
		if !ok {
			continue
		}
		for _, inc := range recipe.Includes {
			demand[inc.ProductID] += inc.QtyPerUnit * line.Qty
		}
	}
	return demand
}

// CheckShortfalls compares aggregated demand against on-hand stock and
// returns every shortfall, not just the first, ordered by product code for
// stable output. Missing stock entries count as zero availability.
//
// This single function backs both the advisory pre-submission check and the
// authoritative check inside the approval transaction, so the two can never
// drift apart. Only the authoritative run gates a stock mutation.
func CheckShortfalls(demand map[int64]float64, onHand map[int64]float64, codes map[int64]string) []Shortfall {
	var shortfalls []Shortfall
	for productID, needed := range demand {
		available := onHand[productID]
		if available+1e-9 >= needed {
			continue
		}
		code := codes[productID]
		shortfalls = append(shortfalls, Shortfall{
			ProductID:   productID,
			ProductCode: code,
			Needed:      needed,
			Available:   available,
		})
	}
	sort.Slice(shortfalls, func(i, j int) bool {
		return shortfalls[i].ProductCode < shortfalls[j].ProductCode
	})
	return shortfalls
}

// InsufficientStockError carries the complete shortfall list of a failed
// validation.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

var shortfallPrinter = message.NewPrinter(language.English)

func (e *InsufficientStockError) Error() string {
	if len(e.Shortfalls) == 0 {
		return "production: insufficient stock"
	}
	parts := make([]string, 0, len(e.Shortfalls))
	for _, sf := range e.Shortfalls {
		parts = append(parts, shortfallPrinter.Sprintf("%s needs %v, %v available", sf.ProductCode, sf.Needed, sf.Available))
	}
	return "production: insufficient stock: " + strings.Join(parts, "; ")
}
