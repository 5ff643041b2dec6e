package production

import (
	"context"
	"fmt"
	"strconv"

	"github.com/harvest-erp/harvest-erp/internal/catalog"
	"github.com/harvest-erp/harvest-erp/internal/shared"
)

// RecipeComponentView is one recipe line joined with catalog data.
type RecipeComponentView struct {
	ProductID   int64   `json:"product_id"`
	ProductCode string  `json:"product_code"`
	ProductName string  `json:"product_name"`
	QtyPerUnit  float64 `json:"qty_per_unit"`
	// UnitCost is the current landed cost for includes and the recipe-fixed
	// cost for removes.
	UnitCost float64 `json:"unit_cost"`
}

// RecipeDetail is the recipe of one processed product with a cost preview.
// The preview is advisory; the binding cost snapshot happens at approval.
type RecipeDetail struct {
	ProductID int64                 `json:"product_id"`
	Includes  []RecipeComponentView `json:"includes"`
	Removes   []RecipeComponentView `json:"removes"`
	Cost      RecipeCostPreview     `json:"cost"`
}

// ProcessedProductView is one PP product with its stock and producibility.
type ProcessedProductView struct {
	catalog.Product
	OnHand     float64 `json:"on_hand"`
	Producible int64   `json:"producible_qty"`
	HasRecipe  bool    `json:"has_recipe"`
}

// ComponentView is one FG/RM product offered as recipe component.
type ComponentView struct {
	catalog.Product
	OnHand float64 `json:"on_hand"`
}

// UpsertRecipe replaces the recipe of a processed product wholesale.
func (s *Service) UpsertRecipe(ctx context.Context, productID int64, includes []RecipeInclude, removes []RecipeRemove, actorID int64) error {
	owner, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return err
	}
	if owner.Kind != catalog.KindProcessed {
		return fmt.Errorf("%w: product %s cannot own a recipe", ErrValidation, owner.Code)
	}

	componentIDs := make([]int64, 0, len(includes)+len(removes))
	seen := map[int64]bool{}
	for _, inc := range includes {
		if inc.ProductID == 0 || inc.QtyPerUnit <= 0 {
			return fmt.Errorf("%w: include lines need a product and a positive qty", ErrValidation)
		}
		if seen[inc.ProductID] {
			return fmt.Errorf("%w: duplicate include component", ErrValidation)
		}
		seen[inc.ProductID] = true
		componentIDs = append(componentIDs, inc.ProductID)
	}
	for _, rem := range removes {
		if rem.ProductID == 0 || rem.QtyPerUnit <= 0 {
			return fmt.Errorf("%w: remove lines need a product and a positive qty", ErrValidation)
		}
		if rem.UnitCost < 0 {
			return fmt.Errorf("%w: remove unit cost cannot be negative", ErrValidation)
		}
		componentIDs = append(componentIDs, rem.ProductID)
	}

	components, err := s.catalog.GetBatch(ctx, componentIDs)
	if err != nil {
		return err
	}
	for _, id := range componentIDs {
		component, ok := components[id]
		if !ok {
			return fmt.Errorf("%w: component %d not found", ErrValidation, id)
		}
		if component.Kind == catalog.KindProcessed {
			return fmt.Errorf("%w: component %s is a processed product; recipes do not nest", ErrValidation, component.Code)
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		_, err := tx.ReplaceRecipe(ctx, Recipe{
			ProductID: productID,
			Includes:  includes,
			Removes:   removes,
			CreatedBy: actorID,
		})
		return err
	})
	if err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, productID)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID: actorID, Action: "RECIPE_UPSERT", Entity: "recipe",
			EntityID: strconv.FormatInt(productID, 10),
			Meta:     map[string]any{"includes": len(includes), "removes": len(removes)},
		})
	}
	return nil
}

// GetRecipeDetail returns the recipe lines with product info and the cost
// preview computed from current landed costs.
func (s *Service) GetRecipeDetail(ctx context.Context, productID int64) (RecipeDetail, error) {
	recipe, ok, err := s.repo.GetRecipe(ctx, productID)
	if err != nil {
		return RecipeDetail{}, err
	}
	if !ok {
		return RecipeDetail{}, ErrNotFound
	}

	componentIDs := make([]int64, 0, len(recipe.Includes)+len(recipe.Removes))
	for _, inc := range recipe.Includes {
		componentIDs = append(componentIDs, inc.ProductID)
	}
	for _, rem := range recipe.Removes {
		componentIDs = append(componentIDs, rem.ProductID)
	}
	components, err := s.catalog.GetBatch(ctx, componentIDs)
	if err != nil {
		return RecipeDetail{}, err
	}

	landedCosts := make(map[int64]float64, len(components))
	for id, p := range components {
		landedCosts[id] = p.LandedCost
	}

	detail := RecipeDetail{ProductID: productID, Cost: PreviewCost(recipe, landedCosts)}
	for _, inc := range recipe.Includes {
		component := components[inc.ProductID]
		detail.Includes = append(detail.Includes, RecipeComponentView{
			ProductID: inc.ProductID, ProductCode: component.Code, ProductName: component.Name,
			QtyPerUnit: inc.QtyPerUnit, UnitCost: component.LandedCost,
		})
	}
	for _, rem := range recipe.Removes {
		component := components[rem.ProductID]
		detail.Removes = append(detail.Removes, RecipeComponentView{
			ProductID: rem.ProductID, ProductCode: component.Code, ProductName: component.Name,
			QtyPerUnit: rem.QtyPerUnit, UnitCost: rem.UnitCost,
		})
	}
	return detail, nil
}

// ListProcessedProducts returns every active PP product with stock and
// producibility, the data behind the production order entry screen.
func (s *Service) ListProcessedProducts(ctx context.Context) ([]ProcessedProductView, error) {
	products, err := s.catalog.ListByKinds(ctx, []catalog.Kind{catalog.KindProcessed})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	onHand, err := s.stockReader.GetOnHandBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	recipes, err := s.repo.GetRecipes(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]ProcessedProductView, 0, len(products))
	for _, p := range products {
		view := ProcessedProductView{Product: p, OnHand: onHand[p.ID]}
		if _, ok := recipes[p.ID]; ok {
			view.HasRecipe = true
			qty, err := s.ProducibleQtyFor(ctx, p.ID)
			if err != nil {
				return nil, err
			}
			view.Producible = qty
		}
		views = append(views, view)
	}
	return views, nil
}

// ListComponents returns active FG and RM products with their stock, the
// candidate pool for recipe lines.
func (s *Service) ListComponents(ctx context.Context) ([]ComponentView, error) {
	products, err := s.catalog.ListByKinds(ctx, []catalog.Kind{catalog.KindFinishedGood, catalog.KindRawMaterial})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	onHand, err := s.stockReader.GetOnHandBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]ComponentView, 0, len(products))
	for _, p := range products {
		views = append(views, ComponentView{Product: p, OnHand: onHand[p.ID]})
	}
	return views, nil
}

// ProducibleQtyFor answers "how many units could be made right now" from
// unlocked stock. Cached briefly and deduplicated via singleflight; the
// number is advisory and may be stale the moment it is returned.
func (s *Service) ProducibleQtyFor(ctx context.Context, productID int64) (int64, error) {
	if s.cache != nil {
		if qty, ok := s.cache.Get(ctx, productID); ok {
			return qty, nil
		}
	}
	result, err, _ := s.producibleGroup.Do(strconv.FormatInt(productID, 10), func() (any, error) {
		qty, err := s.computeProducible(ctx, productID)
		if err != nil {
			return int64(0), err
		}
		if s.cache != nil {
			s.cache.Set(ctx, productID, qty)
		}
		return qty, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (s *Service) computeProducible(ctx context.Context, productID int64) (int64, error) {
	recipe, ok, err := s.repo.GetRecipe(ctx, productID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	includeIDs := make([]int64, 0, len(recipe.Includes))
	for _, inc := range recipe.Includes {
		includeIDs = append(includeIDs, inc.ProductID)
	}
	onHand, err := s.stockReader.GetOnHandBatch(ctx, includeIDs)
	if err != nil {
		return 0, err
	}
	return ProducibleQty(recipe, onHand), nil
}

// RefreshProducible recomputes and caches producibility for every product
// that owns a recipe. Called by the cache warmup job.
func (s *Service) RefreshProducible(ctx context.Context) (int, error) {
	ids, err := s.repo.ListRecipeProductIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		qty, err := s.computeProducible(ctx, id)
		if err != nil {
			return 0, err
		}
		if s.cache != nil {
			s.cache.Set(ctx, id, qty)
		}
	}
	return len(ids), nil
}

// ApprovalHistory returns the submit/approve/reject trail of an order.
func (s *Service) ApprovalHistory(ctx context.Context, orderID int64) ([]shared.ApprovalLog, error) {
	if s.approvals == nil {
		return nil, nil
	}
	if _, err := s.repo.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.approvals.List(ctx, "PPO", orderRef(orderID))
}
