package production

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harvest-erp/harvest-erp/internal/catalog"
	"github.com/harvest-erp/harvest-erp/internal/shared"
	"github.com/harvest-erp/harvest-erp/internal/stock"
	_ "github.com/harvest-erp/harvest-erp/testing"
)

type memoryStock struct {
	balances  map[int64]float64
	movements []stock.Movement
}

func newMemoryStock() *memoryStock {
	return &memoryStock{balances: map[int64]float64{}}
}

func (m *memoryStock) GetBalancesForUpdate(_ context.Context, productIDs []int64) (map[int64]float64, error) {
	out := make(map[int64]float64, len(productIDs))
	for _, id := range productIDs {
		out[id] = m.balances[id]
	}
	return out, nil
}

func (m *memoryStock) UpsertBalance(_ context.Context, productID int64, onHand float64) error {
	m.balances[productID] = onHand
	return nil
}

func (m *memoryStock) InsertMovement(_ context.Context, mv stock.Movement) error {
	m.movements = append(m.movements, mv)
	return nil
}

func (m *memoryStock) GetOnHandBatch(_ context.Context, productIDs []int64) (map[int64]float64, error) {
	out := make(map[int64]float64, len(productIDs))
	for _, id := range productIDs {
		out[id] = m.balances[id]
	}
	return out, nil
}

type memoryCatalog struct {
	products map[int64]catalog.Product
}

func (m *memoryCatalog) Get(_ context.Context, id int64) (catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryCatalog) GetBatch(_ context.Context, ids []int64) (map[int64]catalog.Product, error) {
	out := make(map[int64]catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memoryCatalog) ListByKinds(_ context.Context, kinds []catalog.Kind) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range m.products {
		for _, k := range kinds {
			if p.Kind == k && p.IsActive {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type memoryRepo struct {
	orders   map[int64]ProductionOrder
	items    map[int64][]ProductionOrderItem
	recipes  map[int64]Recipe
	stockOps *memoryStock

	nextOrderID  int64
	nextItemID   int64
	nextRecipeID int64
}

func newMemoryRepo(stockOps *memoryStock) *memoryRepo {
	return &memoryRepo{
		orders:   map[int64]ProductionOrder{},
		items:    map[int64][]ProductionOrderItem{},
		recipes:  map[int64]Recipe{},
		stockOps: stockOps,
	}
}

type repoSnapshot struct {
	orders    map[int64]ProductionOrder
	items     map[int64][]ProductionOrderItem
	recipes   map[int64]Recipe
	balances  map[int64]float64
	movements []stock.Movement
}

func (m *memoryRepo) snapshot() repoSnapshot {
	snap := repoSnapshot{
		orders:    make(map[int64]ProductionOrder, len(m.orders)),
		items:     make(map[int64][]ProductionOrderItem, len(m.items)),
		recipes:   make(map[int64]Recipe, len(m.recipes)),
		balances:  make(map[int64]float64, len(m.stockOps.balances)),
		movements: append([]stock.Movement(nil), m.stockOps.movements...),
	}
	for id, order := range m.orders {
		snap.orders[id] = order
	}
	for id, items := range m.items {
		snap.items[id] = append([]ProductionOrderItem(nil), items...)
	}
	for id, recipe := range m.recipes {
		snap.recipes[id] = recipe
	}
	for id, qty := range m.stockOps.balances {
		snap.balances[id] = qty
	}
	return snap
}

func (m *memoryRepo) restore(snap repoSnapshot) {
	m.orders = snap.orders
	m.items = snap.items
	m.recipes = snap.recipes
	m.stockOps.balances = snap.balances
	m.stockOps.movements = snap.movements
}

// WithTx mimics transactional semantics by restoring the full state when the
// callback fails.
func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := m.snapshot()
	if err := fn(ctx, &memoryTx{repo: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memoryRepo) GetOrder(_ context.Context, orderID int64) (ProductionOrder, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return ProductionOrder{}, ErrNotFound
	}
	return order, nil
}

func (m *memoryRepo) GetOrderItems(_ context.Context, orderID int64) ([]ProductionOrderItem, error) {
	return append([]ProductionOrderItem(nil), m.items[orderID]...), nil
}

func (m *memoryRepo) ListOrders(_ context.Context, status OrderStatus) ([]ProductionOrder, error) {
	var out []ProductionOrder
	for _, order := range m.orders {
		if status == "" || order.Status == status {
			out = append(out, order)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetRecipe(_ context.Context, productID int64) (Recipe, bool, error) {
	recipe, ok := m.recipes[productID]
	return recipe, ok, nil
}

func (m *memoryRepo) GetRecipes(_ context.Context, productIDs []int64) (map[int64]Recipe, error) {
	out := map[int64]Recipe{}
	for _, id := range productIDs {
		if recipe, ok := m.recipes[id]; ok {
			out[id] = recipe
		}
	}
	return out, nil
}

func (m *memoryRepo) ListRecipeProductIDs(_ context.Context) ([]int64, error) {
	var ids []int64
	for id := range m.recipes {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memoryRepo) CountOrdersForDay(_ context.Context, _ time.Time) (int, error) {
	return len(m.orders), nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) InsertOrder(_ context.Context, order ProductionOrder) (int64, error) {
	for _, existing := range t.repo.orders {
		if existing.DocNo == order.DocNo {
			return 0, fmt.Errorf("%w: duplicate doc number", ErrConflict)
		}
	}
	t.repo.nextOrderID++
	order.ID = t.repo.nextOrderID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	t.repo.orders[order.ID] = order
	return order.ID, nil
}

func (t *memoryTx) InsertItems(_ context.Context, orderID int64, items []ProductionOrderItem) error {
	for _, item := range items {
		t.repo.nextItemID++
		item.ID = t.repo.nextItemID
		item.OrderID = orderID
		t.repo.items[orderID] = append(t.repo.items[orderID], item)
	}
	return nil
}

func (t *memoryTx) DeleteItems(_ context.Context, orderID int64) error {
	delete(t.repo.items, orderID)
	return nil
}

func (t *memoryTx) UpdateOrderHeader(_ context.Context, orderID int64, title, note string) error {
	order, ok := t.repo.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.Title = title
	order.Note = note
	order.UpdatedAt = time.Now()
	t.repo.orders[orderID] = order
	return nil
}

func (t *memoryTx) UpdateOrderStatus(_ context.Context, orderID int64, from, to OrderStatus) (bool, error) {
	order, ok := t.repo.orders[orderID]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	t.repo.orders[orderID] = order
	return true, nil
}

func (t *memoryTx) SetApproval(_ context.Context, orderID, approverID int64, at time.Time) error {
	order, ok := t.repo.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.ApprovedBy = &approverID
	order.ApprovedAt = &at
	t.repo.orders[orderID] = order
	return nil
}

func (t *memoryTx) SetRejection(_ context.Context, orderID, rejecterID int64, reason string, at time.Time) error {
	order, ok := t.repo.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	order.RejectedBy = &rejecterID
	order.RejectedAt = &at
	order.RejectionReason = &reason
	t.repo.orders[orderID] = order
	return nil
}

func (t *memoryTx) SetItemCosts(_ context.Context, itemID int64, unitCost, totalCost float64) error {
	for orderID, items := range t.repo.items {
		for i, item := range items {
			if item.ID == itemID {
				item.UnitCost = &unitCost
				item.TotalCost = &totalCost
				t.repo.items[orderID][i] = item
				return nil
			}
		}
	}
	return ErrNotFound
}

func (t *memoryTx) DeleteOrder(_ context.Context, orderID int64) error {
	delete(t.repo.orders, orderID)
	return nil
}

func (t *memoryTx) ReplaceRecipe(_ context.Context, recipe Recipe) (int64, error) {
	if existing, ok := t.repo.recipes[recipe.ProductID]; ok {
		recipe.ID = existing.ID
	} else {
		t.repo.nextRecipeID++
		recipe.ID = t.repo.nextRecipeID
	}
	recipe.UpdatedAt = time.Now()
	t.repo.recipes[recipe.ProductID] = recipe
	return recipe.ID, nil
}

func (t *memoryTx) Stock() stock.TxOps {
	return t.repo.stockOps
}

type testEnv struct {
	repo     *memoryRepo
	catalog  *memoryCatalog
	stockOps *memoryStock
	service  *Service
}

func newTestEnv() *testEnv {
	stockOps := newMemoryStock()
	repo := newMemoryRepo(stockOps)
	cat := &memoryCatalog{products: map[int64]catalog.Product{
		1:   {ID: 1, Code: "RM-SUGAR", Name: "Sugar", Kind: catalog.KindRawMaterial, LandedCost: 3, IsActive: true},
		2:   {ID: 2, Code: "FG-PULP", Name: "Pulp", Kind: catalog.KindFinishedGood, LandedCost: 99, IsActive: true},
		100: {ID: 100, Code: "PP-JUICE", Name: "Juice", Kind: catalog.KindProcessed, IsActive: true},
		101: {ID: 101, Code: "PP-JAM", Name: "Jam", Kind: catalog.KindProcessed, IsActive: true},
	}}
	svc := NewService(repo, cat, stockOps, ServiceConfig{})
	return &testEnv{repo: repo, catalog: cat, stockOps: stockOps, service: svc}
}

func (e *testEnv) seedRecipe(productID int64, includes []RecipeInclude, removes []RecipeRemove) {
	e.repo.nextRecipeID++
	e.repo.recipes[productID] = Recipe{
		ID:        e.repo.nextRecipeID,
		ProductID: productID,
		Includes:  includes,
		Removes:   removes,
	}
}

func (e *testEnv) seedOrderWithDoc(docNo string) {
	e.repo.nextOrderID++
	e.repo.orders[e.repo.nextOrderID] = ProductionOrder{
		ID:     e.repo.nextOrderID,
		DocNo:  docNo,
		Status: StatusOpen,
	}
}

func (e *testEnv) createOrder(t *testing.T, items ...ItemInput) ProductionOrder {
	t.Helper()
	order, err := e.service.CreateOrder(context.Background(), CreateOrderInput{
		Title: "Morning batch", Items: items, ActorID: 7,
	})
	require.NoError(t, err)
	return order
}

func (e *testEnv) submit(t *testing.T, orderID int64) {
	t.Helper()
	require.NoError(t, e.service.SubmitOrder(context.Background(), orderID, 7))
}

func TestCreateOrderAssignsSequentialDocNumbers(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100, []RecipeInclude{{ProductID: 1, QtyPerUnit: 2}}, nil)

	today := time.Now().Format("20060102")
	first := env.createOrder(t, ItemInput{ProductID: 100, Qty: 1})
	second := env.createOrder(t, ItemInput{ProductID: 100, Qty: 2})

	require.Equal(t, "PP-"+today+"-001", first.DocNo)
	require.Equal(t, "PP-"+today+"-002", second.DocNo)
	require.Equal(t, StatusOpen, first.Status)
}

func TestCreateOrderRetriesOnDocNumberCollision(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100, []RecipeInclude{{ProductID: 1, QtyPerUnit: 2}}, nil)

	// One existing order already holds the number the next create would pick.
	today := time.Now().Format("20060102")
	env.seedOrderWithDoc("PP-" + today + "-002")

	order := env.createOrder(t, ItemInput{ProductID: 100, Qty: 1})
	require.Equal(t, "PP-"+today+"-003", order.DocNo)
	require.Equal(t, StatusOpen, order.Status)
}

func TestCreateOrderDocNumberRetriesExhausted(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100, []RecipeInclude{{ProductID: 1, QtyPerUnit: 2}}, nil)

	// Three seeded orders occupy every number the bounded retry will try.
	today := time.Now().Format("20060102")
	env.seedOrderWithDoc("PP-" + today + "-004")
	env.seedOrderWithDoc("PP-" + today + "-005")
	env.seedOrderWithDoc("PP-" + today + "-006")

	_, err := env.service.CreateOrder(context.Background(), CreateOrderInput{
		Title: "Morning batch", Items: []ItemInput{{ProductID: 100, Qty: 1}}, ActorID: 7,
	})
	require.ErrorIs(t, err, ErrConflict)
	require.Contains(t, err.Error(), "retries exhausted")
}

func TestCreateOrderValidation(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100, []RecipeInclude{{ProductID: 1, QtyPerUnit: 2}}, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateOrderInput
	}{
		{"blank title", CreateOrderInput{Title: "  ", Items: []ItemInput{{ProductID: 100, Qty: 1}}, ActorID: 7}},
		{"no items", CreateOrderInput{Title: "x", ActorID: 7}},
		{"zero qty", CreateOrderInput{Title: "x", Items: []ItemInput{{ProductID: 100, Qty: 0}}, ActorID: 7}},
		{"duplicate product", CreateOrderInput{Title: "x", Items: []ItemInput{{ProductID: 100, Qty: 1}, {ProductID: 100, Qty: 2}}, ActorID: 7}},
		{"raw material as output", CreateOrderInput{Title: "x", Items: []ItemInput{{ProductID: 1, Qty: 1}}, ActorID: 7}},
		{"no recipe", CreateOrderInput{Title: "x", Items: []ItemInput{{ProductID: 101, Qty: 1}}, ActorID: 7}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.service.CreateOrder(ctx, tc.input)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestApproveOrderMutatesStockAndSnapshotsCost(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100,
		[]RecipeInclude{{ProductID: 1, QtyPerUnit: 2}},
		[]RecipeRemove{{ProductID: 2, QtyPerUnit: 1, UnitCost: 5}},
	)
	env.stockOps.balances[1] = 10

	order := env.createOrder(t, ItemInput{ProductID: 100, Qty: 5})
	env.submit(t, order.ID)

	require.NoError(t, env.service.ApproveOrder(context.Background(), order.ID, 9))

	stored, err := env.repo.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, stored.Status)
	require.NotNil(t, stored.ApprovedBy)
	require.Equal(t, int64(9), *stored.ApprovedBy)
	require.NotNil(t, stored.ApprovedAt)

	require.InDelta(t, 0.0, env.stockOps.balances[1], 1e-9, "includes consumed")
	require.InDelta(t, 5.0, env.stockOps.balances[2], 1e-9, "byproduct returned")
	require.InDelta(t, 5.0, env.stockOps.balances[100], 1e-9, "output produced")
	require.Len(t, env.stockOps.movements, 3)

	items, err := env.repo.GetOrderItems(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].UnitCost)
	require.InDelta(t, 1.0, *items[0].UnitCost, 1e-9)
	require.NotNil(t, items[0].TotalCost)
	require.InDelta(t, 5.0, *items[0].TotalCost, 1e-9)
}

func TestApproveOrderShortfallLeavesEverythingUntouched(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100, []RecipeInclude{{ProductID: 1, QtyPerUnit: 2}}, nil)
	env.stockOps.balances[1] = 10

	order := env.createOrder(t, ItemInput{ProductID: 100, Qty: 6})
	env.submit(t, order.ID)

	err := env.service.ApproveOrder(context.Background(), order.ID, 9)
	var insufficientErr *InsufficientStockError
	require.ErrorAs(t, err, &insufficientErr)
	require.Len(t, insufficientErr.Shortfalls, 1)
	require.InDelta(t, 12.0, insufficientErr.Shortfalls[0].Needed, 1e-9)
	require.InDelta(t, 10.0, insufficientErr.Shortfalls[0].Available, 1e-9)

	stored, err := env.repo.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status, "order stays pending for a later retry")
	require.InDelta(t, 10.0, env.stockOps.balances[1], 1e-9, "stock untouched")
	require.Empty(t, env.stockOps.movements)
}

func TestApproveOrderAggregatesDemandAcrossItems(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100, []RecipeInclude{{ProductID: 1, QtyPerUnit: 3}}, nil)
	env.seedRecipe(101, []RecipeInclude{{ProductID: 1, QtyPerUnit: 4}}, nil)
	env.stockOps.balances[1] = 6

	order := env.createOrder(t,
		ItemInput{ProductID: 100, Qty: 1},
		ItemInput{ProductID: 101, Qty: 1},
	)
	env.submit(t, order.ID)

	// Each item alone fits in 6 units, together they need 7.
	err := env.service.ApproveOrder(context.Background(), order.ID, 9)
	var insufficientErr *InsufficientStockError
	require.ErrorAs(t, err, &insufficientErr)
	require.InDelta(t, 7.0, insufficientErr.Shortfalls[0].Needed, 1e-9)
	require.InDelta(t, 6.0, insufficientErr.Shortfalls[0].Available, 1e-9)
}

func TestApproveOrderRequiresPendingStatus(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100, []RecipeInclude{{ProductID: 1, QtyPerUnit: 1}}, nil)
	env.stockOps.balances[1] = 100

	order := env.createOrder(t, ItemInput{ProductID: 100, Qty: 1})

	require.ErrorIs(t, env.service.ApproveOrder(context.Background(), order.ID, 9), ErrInvalidState)

	env.submit(t, order.ID)
	require.NoError(t, env.service.ApproveOrder(context.Background(), order.ID, 9))
	require.ErrorIs(t, env.service.ApproveOrder(context.Background(), order.ID, 9), ErrInvalidState, "second approve is rejected")
}

func TestRejectOrderRequiresReason(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100, []RecipeInclude{{ProductID: 1, QtyPerUnit: 1}}, nil)
	order := env.createOrder(t, ItemInput{ProductID: 100, Qty: 1})
	env.submit(t, order.ID)

	ctx := context.Background()
	require.ErrorIs(t, env.service.RejectOrder(ctx, order.ID, 9, "   "), ErrValidation)
	require.NoError(t, env.service.RejectOrder(ctx, order.ID, 9, "missing quality cert"))

	stored, err := env.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, stored.Status)
	require.NotNil(t, stored.RejectionReason)
	require.Equal(t, "missing quality cert", *stored.RejectionReason)
	require.Empty(t, env.stockOps.movements, "rejection never touches stock")
}

func TestDeleteOrderOnlyWhileOpen(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100, []RecipeInclude{{ProductID: 1, QtyPerUnit: 1}}, nil)
	ctx := context.Background()

	open := env.createOrder(t, ItemInput{ProductID: 100, Qty: 1})
	require.NoError(t, env.service.DeleteOrder(ctx, open.ID, 7))
	_, err := env.repo.GetOrder(ctx, open.ID)
	require.ErrorIs(t, err, ErrNotFound)

	pending := env.createOrder(t, ItemInput{ProductID: 100, Qty: 1})
	env.submit(t, pending.ID)
	require.ErrorIs(t, env.service.DeleteOrder(ctx, pending.ID, 7), ErrInvalidState)
}

func TestUpdateOrderReplacesItemSet(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100, []RecipeInclude{{ProductID: 1, QtyPerUnit: 1}}, nil)
	env.seedRecipe(101, []RecipeInclude{{ProductID: 2, QtyPerUnit: 1}}, nil)
	ctx := context.Background()

	order := env.createOrder(t, ItemInput{ProductID: 100, Qty: 1})
	require.NoError(t, env.service.UpdateOrder(ctx, order.ID, UpdateOrderInput{
		Title: "Evening batch", Items: []ItemInput{{ProductID: 101, Qty: 3}}, ActorID: 7,
	}))

	stored, items, err := env.service.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, "Evening batch", stored.Title)
	require.Len(t, items, 1)
	require.Equal(t, int64(101), items[0].ProductID)
	require.InDelta(t, 3.0, items[0].Qty, 1e-9)

	env.submit(t, order.ID)
	err = env.service.UpdateOrder(ctx, order.ID, UpdateOrderInput{
		Title: "x", Items: []ItemInput{{ProductID: 100, Qty: 1}}, ActorID: 7,
	})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestValidateItemsReportsShortfallsWithoutMutating(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100, []RecipeInclude{{ProductID: 1, QtyPerUnit: 2}}, nil)
	env.stockOps.balances[1] = 3

	shortfalls, err := env.service.ValidateItems(context.Background(), []DemandLine{{ProductID: 100, Qty: 2}})
	require.NoError(t, err)
	require.Len(t, shortfalls, 1)
	require.Equal(t, "RM-SUGAR", shortfalls[0].ProductCode)
	require.InDelta(t, 4.0, shortfalls[0].Needed, 1e-9)
	require.InDelta(t, 3.0, shortfalls[0].Available, 1e-9)
	require.Empty(t, env.stockOps.movements)
}

func TestProducibleQtyForUsesRecipeAndStock(t *testing.T) {
	env := newTestEnv()
	env.seedRecipe(100, []RecipeInclude{{ProductID: 1, QtyPerUnit: 2}}, nil)
	env.stockOps.balances[1] = 10

	qty, err := env.service.ProducibleQtyFor(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, int64(5), qty)

	qty, err = env.service.ProducibleQtyFor(context.Background(), 101)
	require.NoError(t, err)
	require.Equal(t, int64(0), qty, "no recipe means nothing is producible")
}

func TestUpsertRecipeValidatesKinds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	err := env.service.UpsertRecipe(ctx, 1, []RecipeInclude{{ProductID: 2, QtyPerUnit: 1}}, nil, 7)
	require.ErrorIs(t, err, ErrValidation, "raw material cannot own a recipe")

	err = env.service.UpsertRecipe(ctx, 100, []RecipeInclude{{ProductID: 101, QtyPerUnit: 1}}, nil, 7)
	require.ErrorIs(t, err, ErrValidation, "processed products cannot be components")

	err = env.service.UpsertRecipe(ctx, 100,
		[]RecipeInclude{{ProductID: 1, QtyPerUnit: 2}},
		[]RecipeRemove{{ProductID: 2, QtyPerUnit: 1, UnitCost: 5}}, 7)
	require.NoError(t, err)

	detail, err := env.service.GetRecipeDetail(ctx, 100)
	require.NoError(t, err)
	require.Len(t, detail.Includes, 1)
	require.Len(t, detail.Removes, 1)
	require.InDelta(t, 6.0, detail.Cost.IncludeCost, 1e-9)
	require.InDelta(t, 5.0, detail.Cost.RemoveCost, 1e-9)
	require.InDelta(t, 1.0, detail.Cost.NetUnitCost, 1e-9)
}

func TestUpsertRecipeAllowsZeroIncludes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	err := env.service.UpsertRecipe(ctx, 100, nil,
		[]RecipeRemove{{ProductID: 2, QtyPerUnit: 1, UnitCost: 5}}, 7)
	require.NoError(t, err)

	detail, err := env.service.GetRecipeDetail(ctx, 100)
	require.NoError(t, err)
	require.Empty(t, detail.Includes)
	require.Len(t, detail.Removes, 1)

	// Nothing to consume means nothing can be produced.
	qty, err := env.service.ProducibleQtyFor(ctx, 100)
	require.NoError(t, err)
	require.Zero(t, qty)
}

func TestGetRecipeDetailMissing(t *testing.T) {
	env := newTestEnv()
	_, err := env.service.GetRecipeDetail(context.Background(), 100)
	require.True(t, errors.Is(err, ErrNotFound))
}
