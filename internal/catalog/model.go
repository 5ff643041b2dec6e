package catalog

import (
	"time"
)

// Kind classifies a product for production purposes.
type Kind string

const (
	// KindRawMaterial is consumed by recipes.
	KindRawMaterial Kind = "RM"
	// KindFinishedGood may be consumed or produced as a byproduct.
	KindFinishedGood Kind = "FG"
	// KindProcessed is manufactured via production orders and owns a recipe.
	KindProcessed Kind = "PP"
)

// Valid reports whether the kind is one of the known values.
func (k Kind) Valid() bool {
	switch k {
	case KindRawMaterial, KindFinishedGood, KindProcessed:
		return true
	}
	return false
}

// Product represents a catalog entry. LandedCost is the current unit cost and
// is a point-in-time read for the production engine; approved orders snapshot
// it and are never revised afterwards.
type Product struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Kind       Kind      `json:"kind"`
	LandedCost float64   `json:"landed_cost"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
