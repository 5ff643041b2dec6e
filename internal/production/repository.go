package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harvest-erp/harvest-erp/internal/platform/db"
	"github.com/harvest-erp/harvest-erp/internal/stock"
)

// Repository persists recipes and production orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside one repeatable-read transaction. Unique violations
// and serialization failures surface as ErrConflict so the service can
// decide whether to retry with a fresh doc number.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("production repository not initialised")
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
	if err != nil && (db.IsUniqueViolation(err) || db.IsSerializationFailure(err)) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

const orderColumns = `id, doc_no, title, note, status, created_by, approved_by, approved_at,
rejected_by, rejected_at, rejection_reason, created_at, updated_at`

// GetOrder loads one order header.
func (r *Repository) GetOrder(ctx context.Context, orderID int64) (ProductionOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM production_orders WHERE id=$1`, orderID)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductionOrder{}, ErrNotFound
	}
	return order, err
}

// GetOrderItems loads the item lines with product code and name joined in.
func (r *Repository) GetOrderItems(ctx context.Context, orderID int64) ([]ProductionOrderItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.order_id, i.product_id, p.code, p.name, i.qty, i.unit_cost, i.total_cost
FROM production_order_items i
JOIN products p ON p.id = i.product_id
WHERE i.order_id=$1 ORDER BY i.id ASC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ProductionOrderItem
	for rows.Next() {
		var item ProductionOrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductCode, &item.ProductName,
			&item.Qty, &item.UnitCost, &item.TotalCost); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListOrders returns order headers, newest first, optionally filtered by status.
func (r *Repository) ListOrders(ctx context.Context, status OrderStatus) ([]ProductionOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM production_orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []ProductionOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// GetRecipe loads the recipe of one processed product.
func (r *Repository) GetRecipe(ctx context.Context, productID int64) (Recipe, bool, error) {
	recipes, err := r.GetRecipes(ctx, []int64{productID})
	if err != nil {
		return Recipe{}, false, err
	}
	recipe, ok := recipes[productID]
	return recipe, ok, nil
}

// GetRecipes loads recipes keyed by owning product id. Products without a
// recipe are simply absent from the map.
func (r *Repository) GetRecipes(ctx context.Context, productIDs []int64) (map[int64]Recipe, error) {
	if len(productIDs) == 0 {
		return map[int64]Recipe{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, created_by, updated_at
FROM recipes WHERE product_id = ANY($1)`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byRecipeID := map[int64]*Recipe{}
	for rows.Next() {
		var recipe Recipe
		if err := rows.Scan(&recipe.ID, &recipe.ProductID, &recipe.CreatedBy, &recipe.UpdatedAt); err != nil {
			return nil, err
		}
		byRecipeID[recipe.ID] = &recipe
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(byRecipeID) == 0 {
		return map[int64]Recipe{}, nil
	}

	recipeIDs := make([]int64, 0, len(byRecipeID))
	for id := range byRecipeID {
		recipeIDs = append(recipeIDs, id)
	}

	incRows, err := r.pool.Query(ctx, `SELECT recipe_id, product_id, qty_per_unit
FROM recipe_includes WHERE recipe_id = ANY($1) ORDER BY id ASC`, recipeIDs)
	if err != nil {
		return nil, err
	}
	defer incRows.Close()
	for incRows.Next() {
		var recipeID int64
		var inc RecipeInclude
		if err := incRows.Scan(&recipeID, &inc.ProductID, &inc.QtyPerUnit); err != nil {
			return nil, err
		}
		byRecipeID[recipeID].Includes = append(byRecipeID[recipeID].Includes, inc)
	}
	if err := incRows.Err(); err != nil {
		return nil, err
	}

	remRows, err := r.pool.Query(ctx, `SELECT recipe_id, product_id, qty_per_unit, unit_cost
FROM recipe_removes WHERE recipe_id = ANY($1) ORDER BY id ASC`, recipeIDs)
	if err != nil {
		return nil, err
	}
	defer remRows.Close()
	for remRows.Next() {
		var recipeID int64
		var rem RecipeRemove
		if err := remRows.Scan(&recipeID, &rem.ProductID, &rem.QtyPerUnit, &rem.UnitCost); err != nil {
			return nil, err
		}
		byRecipeID[recipeID].Removes = append(byRecipeID[recipeID].Removes, rem)
	}
	if err := remRows.Err(); err != nil {
		return nil, err
	}

	result := make(map[int64]Recipe, len(byRecipeID))
	for _, recipe := range byRecipeID {
		result[recipe.ProductID] = *recipe
	}
	return result, nil
}

// ListRecipeProductIDs returns the ids of every product that owns a recipe.
func (r *Repository) ListRecipeProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id FROM recipes ORDER BY product_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountOrdersForDay counts orders created on the given calendar day; the
// next doc number sequence starts past this count.
func (r *Repository) CountOrdersForDay(ctx context.Context, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM production_orders WHERE created_at >= $1 AND created_at < $2`,
		start, end).Scan(&count)
	return count, err
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) InsertOrder(ctx context.Context, order ProductionOrder) (int64, error) {
	now := time.Now()
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO production_orders (doc_no, title, note, status, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		order.DocNo, order.Title, order.Note, string(order.Status), order.CreatedBy, now).Scan(&id)
	return id, err
}

func (t *txRepository) InsertItems(ctx context.Context, orderID int64, items []ProductionOrderItem) error {
	for _, item := range items {
		if _, err := t.tx.Exec(ctx, `INSERT INTO production_order_items (order_id, product_id, qty)
VALUES ($1, $2, $3)`, orderID, item.ProductID, item.Qty); err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepository) DeleteItems(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM production_order_items WHERE order_id=$1`, orderID)
	return err
}

func (t *txRepository) UpdateOrderHeader(ctx context.Context, orderID int64, title, note string) error {
	_, err := t.tx.Exec(ctx, `UPDATE production_orders SET title=$1, note=$2, updated_at=$3 WHERE id=$4`,
		title, note, time.Now(), orderID)
	return err
}

func (t *txRepository) UpdateOrderStatus(ctx context.Context, orderID int64, from, to OrderStatus) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE production_orders SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		string(to), time.Now(), orderID, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepository) SetApproval(ctx context.Context, orderID, approverID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE production_orders SET approved_by=$1, approved_at=$2, updated_at=$2 WHERE id=$3`,
		approverID, at, orderID)
	return err
}

func (t *txRepository) SetRejection(ctx context.Context, orderID, rejecterID int64, reason string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE production_orders SET rejected_by=$1, rejected_at=$2, rejection_reason=$3, updated_at=$2 WHERE id=$4`,
		rejecterID, at, reason, orderID)
	return err
}

func (t *txRepository) SetItemCosts(ctx context.Context, itemID int64, unitCost, totalCost float64) error {
	_, err := t.tx.Exec(ctx, `UPDATE production_order_items SET unit_cost=$1, total_cost=$2 WHERE id=$3`,
		unitCost, totalCost, itemID)
	return err
}

func (t *txRepository) DeleteOrder(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM production_orders WHERE id=$1`, orderID)
	return err
}

// ReplaceRecipe rewrites the recipe of a product wholesale: the old line set
// is dropped and the new one inserted inside the surrounding transaction.
func (t *txRepository) ReplaceRecipe(ctx context.Context, recipe Recipe) (int64, error) {
	var recipeID int64
	err := t.tx.QueryRow(ctx, `INSERT INTO recipes (product_id, created_by, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (product_id) DO UPDATE SET created_by = EXCLUDED.created_by, updated_at = EXCLUDED.updated_at
RETURNING id`, recipe.ProductID, recipe.CreatedBy, time.Now()).Scan(&recipeID)
	if err != nil {
		return 0, err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM recipe_includes WHERE recipe_id=$1`, recipeID); err != nil {
		return 0, err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM recipe_removes WHERE recipe_id=$1`, recipeID); err != nil {
		return 0, err
	}
	for _, inc := range recipe.Includes {
		if _, err := t.tx.Exec(ctx, `INSERT INTO recipe_includes (recipe_id, product_id, qty_per_unit)
VALUES ($1, $2, $3)`, recipeID, inc.ProductID, inc.QtyPerUnit); err != nil {
			return 0, err
		}
	}
	for _, rem := range recipe.Removes {
		if _, err := t.tx.Exec(ctx, `INSERT INTO recipe_removes (recipe_id, product_id, qty_per_unit, unit_cost)
VALUES ($1, $2, $3, $4)`, recipeID, rem.ProductID, rem.QtyPerUnit, rem.UnitCost); err != nil {
			return 0, err
		}
	}
	return recipeID, nil
}

func (t *txRepository) Stock() stock.TxOps {
	return stock.NewTxOps(t.tx)
}

func scanOrder(row pgx.Row) (ProductionOrder, error) {
	var order ProductionOrder
	var status string
	err := row.Scan(&order.ID, &order.DocNo, &order.Title, &order.Note, &status, &order.CreatedBy,
		&order.ApprovedBy, &order.ApprovedAt, &order.RejectedBy, &order.RejectedAt, &order.RejectionReason,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return ProductionOrder{}, err
	}
	order.Status = OrderStatus(status)
	return order, nil
}
