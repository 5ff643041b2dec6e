package production

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/harvest-erp/harvest-erp/internal/catalog"
	"github.com/harvest-erp/harvest-erp/internal/shared"
	"github.com/harvest-erp/harvest-erp/internal/stock"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, orderID int64) (ProductionOrder, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]ProductionOrderItem, error)
	ListOrders(ctx context.Context, status OrderStatus) ([]ProductionOrder, error)
	GetRecipe(ctx context.Context, productID int64) (Recipe, bool, error)
	GetRecipes(ctx context.Context, productIDs []int64) (map[int64]Recipe, error)
	ListRecipeProductIDs(ctx context.Context) ([]int64, error)
	CountOrdersForDay(ctx context.Context, day time.Time) (int, error)
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	InsertOrder(ctx context.Context, order ProductionOrder) (int64, error)
	InsertItems(ctx context.Context, orderID int64, items []ProductionOrderItem) error
	DeleteItems(ctx context.Context, orderID int64) error
	UpdateOrderHeader(ctx context.Context, orderID int64, title, note string) error
	// UpdateOrderStatus transitions from the expected status and reports
	// whether a row changed; zero means the order was not in that status.
	UpdateOrderStatus(ctx context.Context, orderID int64, from, to OrderStatus) (bool, error)
	SetApproval(ctx context.Context, orderID, approverID int64, at time.Time) error
	SetRejection(ctx context.Context, orderID, rejecterID int64, reason string, at time.Time) error
	SetItemCosts(ctx context.Context, itemID int64, unitCost, totalCost float64) error
	DeleteOrder(ctx context.Context, orderID int64) error
	ReplaceRecipe(ctx context.Context, recipe Recipe) (int64, error)
	// Stock returns stock operations bound to the same transaction, so the
	// authoritative validation and the stock mutation share one atomic unit.
	Stock() stock.TxOps
}

// CatalogPort exposes required product catalog reads. Lookups go to the
// catalog every time; the engine never trusts a stale product snapshot.
type CatalogPort interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
	GetBatch(ctx context.Context, ids []int64) (map[int64]catalog.Product, error)
	ListByKinds(ctx context.Context, kinds []catalog.Kind) ([]catalog.Product, error)
}

// StockReaderPort exposes advisory stock reads. These are race-tolerant by
// design; only the approval transaction's own locked reads gate mutations.
type StockReaderPort interface {
	GetOnHandBatch(ctx context.Context, productIDs []int64) (map[int64]float64, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts approval outcomes.
type MetricsPort interface {
	CountApproval(outcome string)
}

// Service owns recipes, producibility, order lifecycle and approval.
type Service struct {
	repo        RepositoryPort
	catalog     CatalogPort
	stockReader StockReaderPort
	approvals   *shared.ApprovalRecorder
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	cache       *ProducibleCache
	integration IntegrationHandler
	metrics     MetricsPort

	producibleGroup singleflight.Group
}

// ServiceConfig groups optional collaborators.
type ServiceConfig struct {
	Approvals   *shared.ApprovalRecorder
	Audit       AuditPort
	Idempotency *shared.IdempotencyStore
	Cache       *ProducibleCache
	Integration IntegrationHandler
	Metrics     MetricsPort
}

// NewService constructs the production service.
func NewService(repo RepositoryPort, catalogPort CatalogPort, stockReader StockReaderPort, cfg ServiceConfig) *Service {
	return &Service{
		repo:        repo,
		catalog:     catalogPort,
		stockReader: stockReader,
		approvals:   cfg.Approvals,
		audit:       cfg.Audit,
		idempotency: cfg.Idempotency,
		cache:       cfg.Cache,
		integration: cfg.Integration,
		metrics:     cfg.Metrics,
	}
}

// ItemInput is one requested line in a create/update payload.
type ItemInput struct {
	ProductID int64
	Qty       float64
}

// CreateOrderInput describes order creation.
type CreateOrderInput struct {
	Title   string
	Note    string
	Items   []ItemInput
	ActorID int64
}

// UpdateOrderInput replaces header fields and the whole item set.
type UpdateOrderInput struct {
	Title   string
	Note    string
	Items   []ItemInput
	ActorID int64
}

const docNumberAttempts = 3

// CreateOrder persists a new order in open status with a fresh doc number.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (ProductionOrder, error) {
	if err := s.validateOrderInput(ctx, input.Title, input.Items); err != nil {
		return ProductionOrder{}, err
	}

	now := time.Now()
	var created ProductionOrder
	var lastErr error
	for attempt := 0; attempt < docNumberAttempts; attempt++ {
		seq, err := s.repo.CountOrdersForDay(ctx, now)
		if err != nil {
			return ProductionOrder{}, err
		}
		order := ProductionOrder{
			DocNo:     formatDocNumber(now, seq+1+attempt),
			Title:     strings.TrimSpace(input.Title),
			Note:      input.Note,
			Status:    StatusOpen,
			CreatedBy: input.ActorID,
		}
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			orderID, err := tx.InsertOrder(ctx, order)
			if err != nil {
				return err
			}
			items := make([]ProductionOrderItem, 0, len(input.Items))
			for _, item := range input.Items {
				items = append(items, ProductionOrderItem{ProductID: item.ProductID, Qty: item.Qty})
			}
			if err := tx.InsertItems(ctx, orderID, items); err != nil {
				return err
			}
			created = order
			created.ID = orderID
			return nil
		})
		if err == nil {
			s.recordAudit(ctx, input.ActorID, "PPO_CREATE", created.ID, map[string]any{"doc_no": created.DocNo})
			return created, nil
		}
		if !errors.Is(err, ErrConflict) {
			return ProductionOrder{}, err
		}
		lastErr = err
	}
	return ProductionOrder{}, fmt.Errorf("production: doc number retries exhausted: %w", lastErr)
}

// UpdateOrder replaces the item set wholesale; open orders only.
func (s *Service) UpdateOrder(ctx context.Context, orderID int64, input UpdateOrderInput) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != StatusOpen {
		return ErrInvalidState
	}
	if err := s.validateOrderInput(ctx, input.Title, input.Items); err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateOrderHeader(ctx, orderID, strings.TrimSpace(input.Title), input.Note); err != nil {
			return err
		}
		if err := tx.DeleteItems(ctx, orderID); err != nil {
			return err
		}
		items := make([]ProductionOrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			items = append(items, ProductionOrderItem{ProductID: item.ProductID, Qty: item.Qty})
		}
		return tx.InsertItems(ctx, orderID, items)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, input.ActorID, "PPO_UPDATE", orderID, map[string]any{"doc_no": order.DocNo})
	return nil
}

// SubmitOrder freezes the item set and requests approval. Submission itself
// does not revalidate stock; callers run ValidateItems for early feedback and
// the approval transaction remains the authoritative gate.
func (s *Service) SubmitOrder(ctx context.Context, orderID, actorID int64) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != StatusOpen {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		moved, err := tx.UpdateOrderStatus(ctx, orderID, StatusOpen, StatusPending)
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidState
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.approvals != nil {
		_ = s.approvals.EnsureSubmit(ctx, "PPO", orderRef(orderID), actorID, fmt.Sprintf("Production order %s submitted", order.DocNo))
	}
	s.recordAudit(ctx, actorID, "PPO_SUBMIT", orderID, map[string]any{"doc_no": order.DocNo})
	return nil
}

// RejectOrder declines a pending order; mandatory reason, no stock effect.
func (s *Service) RejectOrder(ctx context.Context, orderID, actorID int64, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: rejection reason required", ErrValidation)
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != StatusPending {
		return ErrInvalidState
	}
	now := time.Now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		moved, err := tx.UpdateOrderStatus(ctx, orderID, StatusPending, StatusRejected)
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidState
		}
		return tx.SetRejection(ctx, orderID, actorID, strings.TrimSpace(reason), now)
	})
	if err != nil {
		return err
	}
	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module: "PPO", RefID: orderRef(orderID), ActorID: actorID,
			Action: shared.ApprovalReject, Note: fmt.Sprintf("Production order %s rejected: %s", order.DocNo, reason),
		})
	}
	s.recordAudit(ctx, actorID, "PPO_REJECT", orderID, map[string]any{"doc_no": order.DocNo, "reason": reason})
	return nil
}

// DeleteOrder removes an open order. Stock was never touched for an open
// order, so no compensation is needed.
func (s *Service) DeleteOrder(ctx context.Context, orderID, actorID int64) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != StatusOpen {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteItems(ctx, orderID); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, orderID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "PPO_DELETE", orderID, map[string]any{"doc_no": order.DocNo})
	return nil
}

// GetOrder loads an order header with items.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (ProductionOrder, []ProductionOrderItem, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return ProductionOrder{}, nil, err
	}
	items, err := s.repo.GetOrderItems(ctx, orderID)
	if err != nil {
		return ProductionOrder{}, nil, err
	}
	return order, items, nil
}

// ListOrders lists orders, optionally by status.
func (s *Service) ListOrders(ctx context.Context, status OrderStatus) ([]ProductionOrder, error) {
	return s.repo.ListOrders(ctx, status)
}

// ValidateItems is the advisory batch validation: aggregate demand across
// all lines and report every shortfall against current, unlocked stock.
func (s *Service) ValidateItems(ctx context.Context, lines []DemandLine) ([]Shortfall, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	productIDs := make([]int64, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == 0 || line.Qty <= 0 {
			return nil, fmt.Errorf("%w: every line needs a product and a positive qty", ErrValidation)
		}
		productIDs = append(productIDs, line.ProductID)
	}
	recipes, err := s.repo.GetRecipes(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	demand := AggregateDemand(lines, recipes)
	componentIDs := make([]int64, 0, len(demand))
	for id := range demand {
		componentIDs = append(componentIDs, id)
	}
	onHand, err := s.stockReader.GetOnHandBatch(ctx, componentIDs)
	if err != nil {
		return nil, err
	}
	codes, err := s.productCodes(ctx, componentIDs)
	if err != nil {
		return nil, err
	}
	return CheckShortfalls(demand, onHand, codes), nil
}

// ApproveOrder runs the approval transaction: authoritative revalidation and
// the stock mutation inside one atomic unit of work. On a shortfall the
// order stays pending and the caller receives the full shortfall list.
func (s *Service) ApproveOrder(ctx context.Context, orderID, approverID int64) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != StatusPending {
		return ErrInvalidState
	}
	items, err := s.repo.GetOrderItems(ctx, orderID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrValidation)
	}

	idemKey := fmt.Sprintf("PPO-APPROVE:%s", order.DocNo)
	idemInserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "production.approve"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return ErrInvalidState
			}
			return err
		}
		idemInserted = true
	}

	now := time.Now()
	var applied []ApprovedItemEvent
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		moved, err := tx.UpdateOrderStatus(ctx, orderID, StatusPending, StatusApproved)
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidState
		}
		applied, err = s.applyApproval(ctx, tx, order, items, approverID, now)
		return err
	})
	if err != nil {
		if idemInserted {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		s.countApproval(err)
		return err
	}

	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module: "PPO", RefID: orderRef(orderID), ActorID: approverID,
			Action: shared.ApprovalApprove, Note: fmt.Sprintf("Production order %s approved", order.DocNo),
		})
	}
	s.recordAudit(ctx, approverID, "PPO_APPROVE", orderID, map[string]any{"doc_no": order.DocNo})
	if s.metrics != nil {
		s.metrics.CountApproval("approved")
	}
	if s.cache != nil {
		ids := make([]int64, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		s.cache.Invalidate(ctx, ids...)
	}
	if s.integration != nil {
		evt := OrderApprovedEvent{
			OrderID: orderID, DocNo: order.DocNo, ApprovedBy: approverID, ApprovedAt: now,
			Items: applied,
		}
		if err := s.integration.HandleOrderApproved(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// applyApproval holds the order-critical sequence: locked revalidation, then the
// recipe explosion, then the cost snapshot. Runs inside the surrounding
// transaction; any error rolls back everything including the status change,
// which is how a failed validation leaves the order pending.
func (s *Service) applyApproval(ctx context.Context, tx TxRepository, order ProductionOrder, items []ProductionOrderItem, approverID int64, now time.Time) ([]ApprovedItemEvent, error) {
	lines := make([]DemandLine, 0, len(items))
	outputIDs := make([]int64, 0, len(items))
	for _, item := range items {
		if item.Qty <= 0 {
			return nil, fmt.Errorf("%w: item qty must be positive", ErrValidation)
		}
		lines = append(lines, DemandLine{ProductID: item.ProductID, Qty: item.Qty})
		outputIDs = append(outputIDs, item.ProductID)
	}

	recipes, err := s.repo.GetRecipes(ctx, outputIDs)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if _, ok := recipes[item.ProductID]; !ok {
			return nil, fmt.Errorf("%w: product %d has no recipe", ErrValidation, item.ProductID)
		}
	}

	// Every stock row the explosion will touch: includes, removes, outputs.
	touched := map[int64]bool{}
	for _, id := range outputIDs {
		touched[id] = true
		for _, inc := range recipes[id].Includes {
			touched[inc.ProductID] = true
		}
		for _, rem := range recipes[id].Removes {
			touched[rem.ProductID] = true
		}
	}
	touchedIDs := make([]int64, 0, len(touched))
	for id := range touched {
		touchedIDs = append(touchedIDs, id)
	}

	products, err := s.catalog.GetBatch(ctx, touchedIDs)
	if err != nil {
		return nil, err
	}

	stockOps := tx.Stock()
	balances, err := stockOps.GetBalancesForUpdate(ctx, touchedIDs)
	if err != nil {
		return nil, err
	}

	demand := AggregateDemand(lines, recipes)
	codes := make(map[int64]string, len(demand))
	for id := range demand {
		codes[id] = products[id].Code
	}
	if shortfalls := CheckShortfalls(demand, balances, codes); len(shortfalls) > 0 {
		return nil, &InsufficientStockError{Shortfalls: shortfalls}
	}

	landedCosts := make(map[int64]float64, len(products))
	for id, p := range products {
		landedCosts[id] = p.LandedCost
	}

	// Deltas per item in input order: consume includes, return removes,
	// then the manufactured output itself enters stock.
	var deltas []stock.Delta
	for _, item := range items {
		recipe := recipes[item.ProductID]
		for _, inc := range recipe.Includes {
			deltas = append(deltas, stock.Delta{ProductID: inc.ProductID, Qty: -inc.QtyPerUnit * item.Qty})
		}
		for _, rem := range recipe.Removes {
			deltas = append(deltas, stock.Delta{ProductID: rem.ProductID, Qty: rem.QtyPerUnit * item.Qty})
		}
		deltas = append(deltas, stock.Delta{ProductID: item.ProductID, Qty: item.Qty})
	}
	refID := orderRef(order.ID).String()
	note := fmt.Sprintf("Production order %s", order.DocNo)
	if _, err := stock.ApplyDeltas(ctx, stockOps, deltas, "PRODUCTION", refID, note, approverID); err != nil {
		return nil, err
	}

	applied := make([]ApprovedItemEvent, 0, len(items))
	for _, item := range items {
		recipe := recipes[item.ProductID]
		unitCost := UnitCost(recipe, landedCosts)
		totalCost := TotalCost(unitCost, item.Qty)
		if err := tx.SetItemCosts(ctx, item.ID, unitCost, totalCost); err != nil {
			return nil, err
		}
		applied = append(applied, ApprovedItemEvent{ProductID: item.ProductID, Qty: item.Qty, UnitCost: unitCost, TotalCost: totalCost})
	}

	if err := tx.SetApproval(ctx, order.ID, approverID, now); err != nil {
		return nil, err
	}
	return applied, nil
}

func (s *Service) validateOrderInput(ctx context.Context, title string, items []ItemInput) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title required", ErrValidation)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	seen := make(map[int64]bool, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if item.ProductID == 0 || item.Qty <= 0 {
			return fmt.Errorf("%w: every item needs a product and a positive qty", ErrValidation)
		}
		if seen[item.ProductID] {
			return fmt.Errorf("%w: duplicate product in item list", ErrValidation)
		}
		seen[item.ProductID] = true
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.GetBatch(ctx, ids)
	if err != nil {
		return err
	}
	recipes, err := s.repo.GetRecipes(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			return fmt.Errorf("%w: product %d not found", ErrValidation, id)
		}
		if p.Kind != catalog.KindProcessed {
			return fmt.Errorf("%w: product %s is not a processed product", ErrValidation, p.Code)
		}
		if _, ok := recipes[id]; !ok {
			return fmt.Errorf("%w: product %s has no recipe", ErrValidation, p.Code)
		}
	}
	return nil
}

func (s *Service) productCodes(ctx context.Context, ids []int64) (map[int64]string, error) {
	products, err := s.catalog.GetBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	codes := make(map[int64]string, len(products))
	for id, p := range products {
		codes[id] = p.Code
	}
	return codes, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "production_order",
		EntityID: fmt.Sprintf("%d", orderID),
		Meta:     meta,
	})
}

func (s *Service) countApproval(err error) {
	if s.metrics == nil {
		return
	}
	var insufficientErr *InsufficientStockError
	switch {
	case errors.As(err, &insufficientErr):
		s.metrics.CountApproval("insufficient_stock")
	case errors.Is(err, ErrConflict):
		s.metrics.CountApproval("conflict")
	default:
		s.metrics.CountApproval("error")
	}
}

func formatDocNumber(day time.Time, seq int) string {
	return fmt.Sprintf("PP-%s-%03d", day.Format("20060102"), seq)
}

func orderRef(orderID int64) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("PPO:%d", orderID)))
}
