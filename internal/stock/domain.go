package stock

import (
	"errors"
	"time"
)

// Balance summarises the on-hand quantity of a product. One implicit
// warehouse; multi-warehouse allocation is out of scope.
type Balance struct {
	ProductID int64     `json:"product_id"`
	OnHand    float64   `json:"on_hand"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Delta is a signed quantity change for one product.
type Delta struct {
	ProductID int64
	Qty       float64
}

// Movement records one applied delta for traceability.
type Movement struct {
	ID        int64
	ProductID int64
	Qty       float64
	RefModule string
	RefID     string
	Note      string
	PostedAt  time.Time
	CreatedBy int64
}

// AdjustInput describes a manual stock adjustment request.
type AdjustInput struct {
	ProductID int64
	Qty       float64
	Note      string
	ActorID   int64
	RefModule string
	RefID     string
}

// ErrNegativeStock triggered when a movement would drive on_hand below zero.
var ErrNegativeStock = errors.New("stock: negative stock not allowed")

// ErrInvalidQuantity indicates a zero quantity change.
var ErrInvalidQuantity = errors.New("stock: quantity must be non zero")

// ErrBalanceNotFound indicates a missing balance row; callers treat it as
// zero on hand.
var ErrBalanceNotFound = errors.New("stock: balance not found")
