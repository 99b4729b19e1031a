package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeflow/internal/domain"
	apperrors "tradeflow/internal/errors"
)

type mockRepository struct {
	FindByIDFunc    func(ctx context.Context, id int) (*domain.Product, error)
	FindByIDsFunc   func(ctx context.Context, ids []int) ([]domain.Product, error)
	ListByOwnerFunc func(ctx context.Context, ownerID int) ([]domain.Product, error)
	ListAllFunc     func(ctx context.Context, category string) ([]domain.Product, error)
	NameExistsFunc  func(ctx context.Context, name string) (bool, error)
	InsertFunc      func(ctx context.Context, p *domain.Product) error
	UpdateFunc      func(ctx context.Context, id int, fn func(p *domain.Product) error) (*domain.Product, error)
	SoftDeleteFunc  func(ctx context.Context, id int) error
}

func (m *mockRepository) FindByID(ctx context.Context, id int) (*domain.Product, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockRepository) FindByIDs(ctx context.Context, ids []int) ([]domain.Product, error) {
	return m.FindByIDsFunc(ctx, ids)
}

func (m *mockRepository) ListByOwner(ctx context.Context, ownerID int) ([]domain.Product, error) {
	return m.ListByOwnerFunc(ctx, ownerID)
}

func (m *mockRepository) ListAll(ctx context.Context, category string) ([]domain.Product, error) {
	return m.ListAllFunc(ctx, category)
}

func (m *mockRepository) NameExists(ctx context.Context, name string) (bool, error) {
	return m.NameExistsFunc(ctx, name)
}

func (m *mockRepository) Insert(ctx context.Context, p *domain.Product) error {
	return m.InsertFunc(ctx, p)
}

func (m *mockRepository) Update(ctx context.Context, id int, fn func(p *domain.Product) error) (*domain.Product, error) {
	return m.UpdateFunc(ctx, id, fn)
}

func (m *mockRepository) SoftDelete(ctx context.Context, id int) error {
	return m.SoftDeleteFunc(ctx, id)
}

// updatingRepo runs Update closures against a copy of stored.
func updatingRepo(stored domain.Product) *mockRepository {
	return &mockRepository{
		UpdateFunc: func(ctx context.Context, id int, fn func(p *domain.Product) error) (*domain.Product, error) {
			if id != stored.ID {
				return nil, domain.ErrProductMissing
			}
			p := stored
			if err := fn(&p); err != nil {
				return nil, err
			}
			return &p, nil
		},
	}
}

func validInput() CreateProductInput {
	return CreateProductInput{
		Name:      "Green Tea",
		BasePrice: decimal.RequireFromString("19.99"),
		Quantity:  10,
		Category:  "beverages",
		Images:    []string{"https://img.example.com/tea.png"},
	}
}

func TestCreateProduct_Success(t *testing.T) {
	var inserted *domain.Product
	repo := &mockRepository{
		NameExistsFunc: func(ctx context.Context, name string) (bool, error) { return false, nil },
		InsertFunc: func(ctx context.Context, p *domain.Product) error {
			p.ID = 11
			inserted = p
			return nil
		},
	}
	svc := NewCatalogService(repo, zap.NewNop())

	p, err := svc.CreateProduct(context.Background(), 5, validInput())

	require.NoError(t, err)
	assert.Equal(t, 11, p.ID)
	assert.Equal(t, 5, p.OwnerID)
	assert.Equal(t, 0, p.HoldQuantity)
	assert.True(t, p.DiscountPercent.IsZero())
	assert.True(t, p.DiscountedPrice.Equal(p.BasePrice))
	assert.Same(t, inserted, p)
}

func TestCreateProduct_InvalidSpec(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CreateProductInput)
	}{
		{"empty name", func(in *CreateProductInput) { in.Name = "   " }},
		{"negative price", func(in *CreateProductInput) { in.BasePrice = decimal.NewFromInt(-1) }},
		{"negative quantity", func(in *CreateProductInput) { in.Quantity = -1 }},
		{"no images", func(in *CreateProductInput) { in.Images = nil }},
		{"blank image", func(in *CreateProductInput) { in.Images = []string{""} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{
				NameExistsFunc: func(ctx context.Context, name string) (bool, error) {
					t.Fatal("repository must not be called")
					return false, nil
				},
			}
			in := validInput()
			tt.mutate(&in)

			_, err := NewCatalogService(repo, zap.NewNop()).CreateProduct(context.Background(), 5, in)
			assert.Equal(t, apperrors.KindInvalidSpec, apperrors.KindOf(err))
		})
	}
}

func TestCreateProduct_DuplicateName(t *testing.T) {
	repo := &mockRepository{
		NameExistsFunc: func(ctx context.Context, name string) (bool, error) { return true, nil },
	}

	_, err := NewCatalogService(repo, zap.NewNop()).CreateProduct(context.Background(), 5, validInput())
	assert.Equal(t, apperrors.KindDuplicateName, apperrors.KindOf(err))
}

func TestCreateProduct_DuplicateNameRace(t *testing.T) {
	repo := &mockRepository{
		NameExistsFunc: func(ctx context.Context, name string) (bool, error) { return false, nil },
		InsertFunc: func(ctx context.Context, p *domain.Product) error {
			return apperrors.NewDuplicateNameError(p.Name)
		},
	}

	_, err := NewCatalogService(repo, zap.NewNop()).CreateProduct(context.Background(), 5, validInput())
	assert.Equal(t, apperrors.KindDuplicateName, apperrors.KindOf(err))
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := &mockRepository{
		FindByIDFunc: func(ctx context.Context, id int) (*domain.Product, error) { return nil, domain.ErrProductMissing },
	}

	_, err := NewCatalogService(repo, zap.NewNop()).GetProduct(context.Background(), 3)
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestGetProducts_ReportsMissing(t *testing.T) {
	repo := &mockRepository{
		FindByIDsFunc: func(ctx context.Context, ids []int) ([]domain.Product, error) {
			return []domain.Product{{ID: 1}, {ID: 3}}, nil
		},
	}

	found, missing, err := NewCatalogService(repo, zap.NewNop()).GetProducts(context.Background(), []int{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, []int{2, 4}, missing)
}

func TestUpdateDetails_AppliesOnlySuppliedFields(t *testing.T) {
	stored := domain.Product{
		ID:              4,
		Name:            "Green Tea",
		Description:     "loose leaf",
		BasePrice:       decimal.NewFromInt(100),
		DiscountPercent: decimal.NewFromInt(20),
		DiscountedPrice: decimal.NewFromInt(80),
		Quantity:        10,
		Category:        "beverages",
		Images:          []string{"a.png"},
	}
	svc := NewCatalogService(updatingRepo(stored), zap.NewNop())

	desc := "first flush"
	p, err := svc.UpdateDetails(context.Background(), 4, UpdateProductInput{Description: &desc})

	require.NoError(t, err)
	assert.Equal(t, "first flush", p.Description)
	assert.Equal(t, "Green Tea", p.Name)
	assert.Equal(t, "beverages", p.Category)
	assert.Equal(t, []string{"a.png"}, p.Images)
	assert.True(t, p.DiscountedPrice.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, 10, p.Quantity)
}

func TestUpdateDetails_BasePriceRepricesDiscount(t *testing.T) {
	stored := domain.Product{
		ID:              4,
		BasePrice:       decimal.NewFromInt(100),
		DiscountPercent: decimal.NewFromInt(20),
		DiscountedPrice: decimal.NewFromInt(80),
	}
	svc := NewCatalogService(updatingRepo(stored), zap.NewNop())

	price := decimal.NewFromInt(50)
	p, err := svc.UpdateDetails(context.Background(), 4, UpdateProductInput{BasePrice: &price})

	require.NoError(t, err)
	assert.Equal(t, "40.00", p.DiscountedPrice.StringFixed(2))
}

func TestUpdateDetails_NotFound(t *testing.T) {
	svc := NewCatalogService(updatingRepo(domain.Product{ID: 4}), zap.NewNop())

	name := "x"
	_, err := svc.UpdateDetails(context.Background(), 99, UpdateProductInput{Name: &name})
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestUpdateDetails_RejectsInvalidFields(t *testing.T) {
	svc := NewCatalogService(&mockRepository{}, zap.NewNop())

	empty := ""
	_, err := svc.UpdateDetails(context.Background(), 4, UpdateProductInput{Name: &empty})
	assert.Equal(t, apperrors.KindInvalidSpec, apperrors.KindOf(err))

	negative := decimal.NewFromInt(-5)
	_, err = svc.UpdateDetails(context.Background(), 4, UpdateProductInput{BasePrice: &negative})
	assert.Equal(t, apperrors.KindInvalidSpec, apperrors.KindOf(err))

	_, err = svc.UpdateDetails(context.Background(), 4, UpdateProductInput{Images: []string{}})
	assert.Equal(t, apperrors.KindInvalidSpec, apperrors.KindOf(err))
}

func TestDeleteProduct(t *testing.T) {
	repo := &mockRepository{
		SoftDeleteFunc: func(ctx context.Context, id int) error {
			if id == 1 {
				return nil
			}
			return domain.ErrProductMissing
		},
	}
	svc := NewCatalogService(repo, zap.NewNop())

	assert.NoError(t, svc.DeleteProduct(context.Background(), 1))
	_, ok := apperrors.IsNotFoundError(svc.DeleteProduct(context.Background(), 2))
	assert.True(t, ok)
}

func TestListAll_PropagatesRepositoryError(t *testing.T) {
	dbErr := errors.New("connection refused")
	repo := &mockRepository{
		ListAllFunc: func(ctx context.Context, category string) ([]domain.Product, error) {
			assert.Equal(t, "beverages", category)
			return nil, dbErr
		},
	}

	_, err := NewCatalogService(repo, zap.NewNop()).ListAll(context.Background(), " beverages ")
	assert.ErrorIs(t, err, dbErr)
}
