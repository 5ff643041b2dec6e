package catalog

import (
	"context"
	"fmt"
)

// Service exposes catalog reads and writes. The production engine treats this
// package as the authoritative source for product kind and landed cost and
// re-fetches at validation/approval time instead of keeping its own snapshots.
type Service struct {
	repo Repository
}

// NewService constructs Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns products with pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// GetBatch returns the products for the given ids, missing ids are skipped.
func (s *Service) GetBatch(ctx context.Context, ids []int64) (map[int64]Product, error) {
	products, err := s.repo.GetBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

// ListByKinds returns all active products of the given kinds, unpaginated.
func (s *Service) ListByKinds(ctx context.Context, kinds []Kind) ([]Product, error) {
	active := true
	products, _, err := s.repo.List(ctx, ListFilters{Kinds: kinds, IsActive: &active})
	return products, err
}

// Create validates and persists a new product.
func (s *Service) Create(ctx context.Context, form ProductForm) (Product, error) {
	product := Product{
		Code:       form.Code,
		Name:       form.Name,
		Kind:       form.Kind,
		LandedCost: form.LandedCost,
		IsActive:   form.IsActive,
	}
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: create product: %w", err)
	}
	return created, nil
}

// Update validates and replaces product fields.
func (s *Service) Update(ctx context.Context, id int64, form ProductForm) error {
	product := Product{
		Code:       form.Code,
		Name:       form.Name,
		Kind:       form.Kind,
		LandedCost: form.LandedCost,
		IsActive:   form.IsActive,
	}
	if err := s.validate(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, product)
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
