package stock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/harvest-erp/harvest-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxOps) error) error
	GetOnHand(ctx context.Context, productID int64) (float64, error)
	GetOnHandBatch(ctx context.Context, productIDs []int64) (map[int64]float64, error)
	ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates stock reads and adjustments. The production approval
// transaction bypasses this service and drives TxOps directly so that its
// validation and mutation share one transaction.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// GetOnHand returns current on-hand for one product.
func (s *Service) GetOnHand(ctx context.Context, productID int64) (float64, error) {
	if productID == 0 {
		return 0, errors.New("stock: product required")
	}
	return s.repo.GetOnHand(ctx, productID)
}

// GetOnHandBatch returns on-hand quantities keyed by product id. Missing
// products are reported as 0.
func (s *Service) GetOnHandBatch(ctx context.Context, productIDs []int64) (map[int64]float64, error) {
	balances, err := s.repo.GetOnHandBatch(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range productIDs {
		if _, ok := balances[id]; !ok {
			balances[id] = 0
		}
	}
	return balances, nil
}

// ListMovements lists the journal of a product.
func (s *Service) ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if productID == 0 {
		return nil, errors.New("stock: product required")
	}
	return s.repo.ListMovements(ctx, productID, limit)
}

// Adjust applies a manual signed adjustment with a negative-stock guard.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (Balance, error) {
	if input.ProductID == 0 {
		return Balance{}, errors.New("stock: product required")
	}
	if math.Abs(input.Qty) < 1e-9 {
		return Balance{}, ErrInvalidQuantity
	}
	if input.RefID != "" {
		if _, err := uuid.Parse(input.RefID); err != nil {
			return Balance{}, fmt.Errorf("stock: invalid ref id: %w", err)
		}
	}

	deltas := []Delta{{ProductID: input.ProductID, Qty: input.Qty}}
	mv := Movement{
		ProductID: input.ProductID,
		Qty:       input.Qty,
		RefModule: input.RefModule,
		RefID:     input.RefID,
		Note:      input.Note,
		CreatedBy: input.ActorID,
	}
	var result Balance
	err := s.repo.WithTx(ctx, func(ctx context.Context, ops TxOps) error {
		applied, err := ApplyDeltas(ctx, ops, deltas, mv.RefModule, mv.RefID, mv.Note, mv.CreatedBy)
		if err != nil {
			return err
		}
		result = Balance{ProductID: input.ProductID, OnHand: applied[input.ProductID], UpdatedAt: time.Now().UTC()}
		return nil
	})
	if err != nil {
		return Balance{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "STOCK_ADJUST",
			Entity:   "stock_balance",
			EntityID: fmt.Sprintf("%d", input.ProductID),
			Meta:     map[string]any{"qty": input.Qty, "note": input.Note},
		})
	}
	return result, nil
}

// ApplyDeltas locks the affected balance rows, applies every delta and
// journals the movements. All-or-nothing within the supplied transaction:
// any negative result aborts the whole batch. Returns the new on-hand
// quantities of the touched products.
func ApplyDeltas(ctx context.Context, ops TxOps, deltas []Delta, refModule, refID, note string, actorID int64) (map[int64]float64, error) {
	if len(deltas) == 0 {
		return map[int64]float64{}, nil
	}
	ids := make([]int64, 0, len(deltas))
	seen := make(map[int64]bool, len(deltas))
	for _, d := range deltas {
		if d.ProductID == 0 {
			return nil, errors.New("stock: delta product required")
		}
		if !seen[d.ProductID] {
			seen[d.ProductID] = true
			ids = append(ids, d.ProductID)
		}
	}

	balances, err := ops.GetBalancesForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Deltas are applied sequentially in input order against the running
	// balance, so a product that is consumed by one line and replenished by
	// another nets out without double counting.
	for _, d := range deltas {
		next := balances[d.ProductID] + d.Qty
		if next < -1e-9 {
			return nil, ErrNegativeStock
		}
		if math.Abs(next) < 1e-9 {
			next = 0
		}
		balances[d.ProductID] = next
	}

	for _, d := range deltas {
		if err := ops.InsertMovement(ctx, Movement{
			ProductID: d.ProductID,
			Qty:       d.Qty,
			RefModule: refModule,
			RefID:     refID,
			Note:      note,
			CreatedBy: actorID,
		}); err != nil {
			return nil, err
		}
	}
	for id, onHand := range balances {
		if err := ops.UpsertBalance(ctx, id, onHand); err != nil {
			return nil, err
		}
	}
	return balances, nil
}
