package production

import (
	"errors"
	"time"
)

// OrderStatus enumerates the production order lifecycle.
type OrderStatus string

const (
	// StatusOpen means the order is editable and deletable.
	StatusOpen OrderStatus = "open"
	// StatusPending means the order awaits an approve/reject decision.
	StatusPending OrderStatus = "pending"
	// StatusApproved is terminal; stock has been mutated.
	StatusApproved OrderStatus = "approved"
	// StatusRejected is terminal; stock was never touched.
	StatusRejected OrderStatus = "rejected"
)

// RecipeInclude is a component consumed from stock per unit of output,
// costed at the component's current landed cost.
type RecipeInclude struct {
	ProductID  int64   `json:"product_id"`
	QtyPerUnit float64 `json:"qty_per_unit"`
}

// RecipeRemove is a byproduct returned to stock per unit of output. Its unit
// cost is fixed by the recipe, not read from the component's landed cost.
type RecipeRemove struct {
	ProductID  int64   `json:"product_id"`
	QtyPerUnit float64 `json:"qty_per_unit"`
	UnitCost   float64 `json:"unit_cost"`
}

// Recipe defines how one processed product is manufactured. Owned 1:1 by a
// PP-kind product; includes and removes reference non-PP products only.
type Recipe struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Includes  []RecipeInclude `json:"includes"`
	Removes   []RecipeRemove  `json:"removes"`
	CreatedBy int64           `json:"created_by"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductionOrder is the document header.
type ProductionOrder struct {
	ID              int64       `json:"id"`
	DocNo           string      `json:"doc_no"`
	Title           string      `json:"title"`
	Note            string      `json:"note"`
	Status          OrderStatus `json:"status"`
	CreatedBy       int64       `json:"created_by"`
	ApprovedBy      *int64      `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time  `json:"approved_at,omitempty"`
	RejectedBy      *int64      `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time  `json:"rejected_at,omitempty"`
	RejectionReason *string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ProductionOrderItem is one requested processed product. UnitCost and
// TotalCost stay nil until approval and are permanently fixed afterwards.
type ProductionOrderItem struct {
	ID          int64    `json:"id"`
	OrderID     int64    `json:"order_id"`
	ProductID   int64    `json:"product_id"`
	ProductCode string   `json:"product_code,omitempty"`
	ProductName string   `json:"product_name,omitempty"`
	Qty         float64  `json:"qty"`
	UnitCost    *float64 `json:"unit_cost,omitempty"`
	TotalCost   *float64 `json:"total_cost,omitempty"`
}

// DemandLine is one (product, qty) request evaluated by the batch validator.
type DemandLine struct {
	ProductID int64
	Qty       float64
}

// Shortfall describes one raw material that cannot cover aggregated demand.
type Shortfall struct {
	ProductID   int64   `json:"product_id"`
	ProductCode string  `json:"product_code"`
	Needed      float64 `json:"needed"`
	Available   float64 `json:"available"`
}

var (
	// ErrInvalidState signals an action attempted from the wrong lifecycle state.
	ErrInvalidState = errors.New("production: invalid state transition")
	// ErrValidation signals rejected input before any persistence.
	ErrValidation = errors.New("production: invalid input")
	// ErrConflict signals a persistence-level conflict (doc number collision
	// exhausted its retries, or a concurrent stock mutation); callers should
	// re-fetch state and retry.
	ErrConflict = errors.New("production: persistence conflict")
	// ErrNotFound signals a missing order or recipe owner.
	ErrNotFound = errors.New("production: not found")
)
