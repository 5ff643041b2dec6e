package stock

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxOps exposes the transactional stock operations. An instance is only valid
// for the lifetime of the transaction it was built from.
type TxOps interface {
	// GetBalancesForUpdate locks the balance rows of the given products and
	// returns their quantities. Products without a row map to 0. Rows are
	// locked in ascending product id order to avoid lock cycles between
	// concurrent approvals.
	GetBalancesForUpdate(ctx context.Context, productIDs []int64) (map[int64]float64, error)
	// UpsertBalance writes the new on-hand quantity of one product.
	UpsertBalance(ctx context.Context, productID int64, onHand float64) error
	// InsertMovement journals one applied delta.
	InsertMovement(ctx context.Context, mv Movement) error
}

// Repository persists stock balances in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxOps) error) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(ctx, NewTxOps(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetOnHand returns the current on-hand quantity, 0 when no row exists.
func (r *Repository) GetOnHand(ctx context.Context, productID int64) (float64, error) {
	var onHand float64
	err := r.pool.QueryRow(ctx, `SELECT on_hand FROM stock_balances WHERE product_id=$1`, productID).Scan(&onHand)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return onHand, err
}

// GetOnHandBatch returns on-hand quantities for the given products. Products
// without a balance row are omitted; callers default them to 0.
func (r *Repository) GetOnHandBatch(ctx context.Context, productIDs []int64) (map[int64]float64, error) {
	if len(productIDs) == 0 {
		return map[int64]float64{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT product_id, on_hand FROM stock_balances WHERE product_id = ANY($1)`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[int64]float64, len(productIDs))
	for rows.Next() {
		var productID int64
		var onHand float64
		if err := rows.Scan(&productID, &onHand); err != nil {
			return nil, err
		}
		balances[productID] = onHand
	}
	return balances, rows.Err()
}

// ListMovements returns the movement journal of a product, newest first.
func (r *Repository) ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, qty, ref_module, ref_id, note, posted_at, created_by
FROM stock_movements WHERE product_id=$1 ORDER BY posted_at DESC, id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var mv Movement
		if err := rows.Scan(&mv.ID, &mv.ProductID, &mv.Qty, &mv.RefModule, &mv.RefID, &mv.Note, &mv.PostedAt, &mv.CreatedBy); err != nil {
			return nil, err
		}
		movements = append(movements, mv)
	}
	return movements, rows.Err()
}

type txOps struct {
	tx pgx.Tx
}

// NewTxOps wraps an open transaction with stock operations. Exported so the
// production approval transaction can mutate stock inside its own unit of
// work.
func NewTxOps(tx pgx.Tx) TxOps {
	return &txOps{tx: tx}
}

func (t *txOps) GetBalancesForUpdate(ctx context.Context, productIDs []int64) (map[int64]float64, error) {
	ids := make([]int64, len(productIDs))
	copy(ids, productIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	balances := make(map[int64]float64, len(ids))
	for _, id := range ids {
		var onHand float64
		err := t.tx.QueryRow(ctx, `SELECT on_hand FROM stock_balances WHERE product_id=$1 FOR UPDATE`, id).Scan(&onHand)
		if errors.Is(err, pgx.ErrNoRows) {
			balances[id] = 0
			continue
		}
		if err != nil {
			return nil, err
		}
		balances[id] = onHand
	}
	return balances, nil
}

func (t *txOps) UpsertBalance(ctx context.Context, productID int64, onHand float64) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO stock_balances (product_id, on_hand, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (product_id) DO UPDATE SET on_hand = EXCLUDED.on_hand, updated_at = EXCLUDED.updated_at`,
		productID, onHand, time.Now().UTC())
	return err
}

func (t *txOps) InsertMovement(ctx context.Context, mv Movement) error {
	postedAt := mv.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now().UTC()
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO stock_movements (product_id, qty, ref_module, ref_id, note, posted_at, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		mv.ProductID, mv.Qty, mv.RefModule, mv.RefID, mv.Note, postedAt, mv.CreatedBy)
	return err
}
