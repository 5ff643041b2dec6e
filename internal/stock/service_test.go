package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/harvest-erp/harvest-erp/testing"
)

type memRepo struct {
	balances  map[int64]float64
	movements []Movement
}

func newMemRepo() *memRepo {
	return &memRepo{balances: map[int64]float64{}}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxOps) error) error {
	balances := make(map[int64]float64, len(m.balances))
	for id, qty := range m.balances {
		balances[id] = qty
	}
	movements := append([]Movement(nil), m.movements...)
	if err := fn(ctx, m); err != nil {
		m.balances = balances
		m.movements = movements
		return err
	}
	return nil
}

func (m *memRepo) GetOnHand(_ context.Context, productID int64) (float64, error) {
	return m.balances[productID], nil
}

func (m *memRepo) GetOnHandBatch(_ context.Context, productIDs []int64) (map[int64]float64, error) {
	out := map[int64]float64{}
	for _, id := range productIDs {
		if qty, ok := m.balances[id]; ok {
			out[id] = qty
		}
	}
	return out, nil
}

func (m *memRepo) ListMovements(_ context.Context, productID int64, _ int) ([]Movement, error) {
	var out []Movement
	for _, mv := range m.movements {
		if mv.ProductID == productID {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (m *memRepo) GetBalancesForUpdate(_ context.Context, productIDs []int64) (map[int64]float64, error) {
	out := make(map[int64]float64, len(productIDs))
	for _, id := range productIDs {
		out[id] = m.balances[id]
	}
	return out, nil
}

func (m *memRepo) UpsertBalance(_ context.Context, productID int64, onHand float64) error {
	m.balances[productID] = onHand
	return nil
}

func (m *memRepo) InsertMovement(_ context.Context, mv Movement) error {
	m.movements = append(m.movements, mv)
	return nil
}

func TestAdjustAppliesSignedDelta(t *testing.T) {
	repo := newMemRepo()
	repo.balances[1] = 4
	svc := NewService(repo, nil)

	balance, err := svc.Adjust(context.Background(), AdjustInput{ProductID: 1, Qty: 2.5, ActorID: 7, Note: "stock take"})
	require.NoError(t, err)
	require.InDelta(t, 6.5, balance.OnHand, 1e-9)
	require.Len(t, repo.movements, 1)
	require.InDelta(t, 2.5, repo.movements[0].Qty, 1e-9)
}

func TestAdjustRejectsNegativeResult(t *testing.T) {
	repo := newMemRepo()
	repo.balances[1] = 3
	svc := NewService(repo, nil)

	_, err := svc.Adjust(context.Background(), AdjustInput{ProductID: 1, Qty: -4, ActorID: 7})
	require.ErrorIs(t, err, ErrNegativeStock)
	require.InDelta(t, 3.0, repo.balances[1], 1e-9, "failed adjustment leaves balance untouched")
	require.Empty(t, repo.movements)
}

func TestAdjustRejectsZeroQty(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	_, err := svc.Adjust(context.Background(), AdjustInput{ProductID: 1, Qty: 0, ActorID: 7})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestGetOnHandBatchDefaultsMissingToZero(t *testing.T) {
	repo := newMemRepo()
	repo.balances[1] = 2
	svc := NewService(repo, nil)

	balances, err := svc.GetOnHandBatch(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.InDelta(t, 2.0, balances[1], 1e-9)
	require.InDelta(t, 0.0, balances[2], 1e-9)
}

func TestApplyDeltasSequentialOrder(t *testing.T) {
	repo := newMemRepo()
	repo.balances[1] = 2

	// Consume then replenish the same product in one batch: the running
	// balance dips to zero but never below.
	deltas := []Delta{
		{ProductID: 1, Qty: -2},
		{ProductID: 1, Qty: 5},
	}
	applied, err := ApplyDeltas(context.Background(), repo, deltas, "TEST", "", "", 7)
	require.NoError(t, err)
	require.InDelta(t, 5.0, applied[1], 1e-9)
	require.Len(t, repo.movements, 2)
}

func TestApplyDeltasAllOrNothing(t *testing.T) {
	repo := newMemRepo()
	repo.balances[1] = 10
	repo.balances[2] = 1

	deltas := []Delta{
		{ProductID: 1, Qty: -5},
		{ProductID: 2, Qty: -2},
	}
	_, err := ApplyDeltas(context.Background(), repo, deltas, "TEST", "", "", 7)
	require.ErrorIs(t, err, ErrNegativeStock)
}
