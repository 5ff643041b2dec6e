package catalog

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harvest-erp/harvest-erp/internal/shared"
	_ "github.com/harvest-erp/harvest-erp/testing"
)

type memRepo struct {
	products map[int64]Product
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{products: map[int64]Product{}}
}

func (m *memRepo) List(_ context.Context, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		if filters.Kind != "" && p.Kind != filters.Kind {
			continue
		}
		if len(filters.Kinds) > 0 {
			match := false
			for _, k := range filters.Kinds {
				if p.Kind == k {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		if filters.IsActive != nil && p.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, len(out), nil
}

func (m *memRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memRepo) GetBatch(_ context.Context, ids []int64) ([]Product, error) {
	var out []Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) Create(_ context.Context, product Product) (Product, error) {
	m.nextID++
	product.ID = m.nextID
	m.products[product.ID] = product
	return product, nil
}

func (m *memRepo) Update(_ context.Context, id int64, product Product) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	product.ID = id
	m.products[id] = product
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func TestCreateValidatesForm(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, ProductForm{Code: "", Name: "Sugar", Kind: KindRawMaterial})
	require.Error(t, err)

	_, err = svc.Create(ctx, ProductForm{Code: "RM-1", Name: "Sugar", Kind: "XX"})
	require.Error(t, err)

	_, err = svc.Create(ctx, ProductForm{Code: "RM-1", Name: "Sugar", Kind: KindRawMaterial, LandedCost: -1})
	require.Error(t, err)

	created, err := svc.Create(ctx, ProductForm{Code: "RM-1", Name: "Sugar", Kind: KindRawMaterial, LandedCost: 3, IsActive: true})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, KindRawMaterial, created.Kind)
}

func TestGetBatchKeysByID(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	a, err := svc.Create(ctx, ProductForm{Code: "RM-1", Name: "Sugar", Kind: KindRawMaterial, IsActive: true})
	require.NoError(t, err)
	b, err := svc.Create(ctx, ProductForm{Code: "PP-1", Name: "Juice", Kind: KindProcessed, IsActive: true})
	require.NoError(t, err)

	batch, err := svc.GetBatch(ctx, []int64{a.ID, b.ID, 999})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Equal(t, "RM-1", batch[a.ID].Code)
	require.Equal(t, "PP-1", batch[b.ID].Code)
}

func TestListByKindsFiltersActive(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, ProductForm{Code: "RM-1", Name: "Sugar", Kind: KindRawMaterial, IsActive: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ProductForm{Code: "FG-1", Name: "Pulp", Kind: KindFinishedGood, IsActive: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ProductForm{Code: "FG-2", Name: "Old pulp", Kind: KindFinishedGood, IsActive: false})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ProductForm{Code: "PP-1", Name: "Juice", Kind: KindProcessed, IsActive: true})
	require.NoError(t, err)

	products, err := svc.ListByKinds(ctx, []Kind{KindRawMaterial, KindFinishedGood})
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "FG-1", products[0].Code)
	require.Equal(t, "RM-1", products[1].Code)
}
