package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeflow/internal/auth"
	"tradeflow/internal/domain"
	"tradeflow/internal/dto"
	apperrors "tradeflow/internal/errors"
	"tradeflow/internal/product/service"
	"tradeflow/internal/server/respond"
)

type mockCatalog struct {
	GetProductFunc    func(ctx context.Context, id int) (*domain.Product, error)
	ListByOwnerFunc   func(ctx context.Context, ownerID int) ([]domain.Product, error)
	ListAllFunc       func(ctx context.Context, category string) ([]domain.Product, error)
	CreateProductFunc func(ctx context.Context, ownerID int, in service.CreateProductInput) (*domain.Product, error)
	UpdateDetailsFunc func(ctx context.Context, id int, in service.UpdateProductInput) (*domain.Product, error)
	DeleteProductFunc func(ctx context.Context, id int) error
}

func (m *mockCatalog) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	return m.GetProductFunc(ctx, id)
}

func (m *mockCatalog) ListByOwner(ctx context.Context, ownerID int) ([]domain.Product, error) {
	return m.ListByOwnerFunc(ctx, ownerID)
}

func (m *mockCatalog) ListAll(ctx context.Context, category string) ([]domain.Product, error) {
	return m.ListAllFunc(ctx, category)
}

func (m *mockCatalog) CreateProduct(ctx context.Context, ownerID int, in service.CreateProductInput) (*domain.Product, error) {
	return m.CreateProductFunc(ctx, ownerID, in)
}

func (m *mockCatalog) UpdateDetails(ctx context.Context, id int, in service.UpdateProductInput) (*domain.Product, error) {
	return m.UpdateDetailsFunc(ctx, id, in)
}

func (m *mockCatalog) DeleteProduct(ctx context.Context, id int) error {
	return m.DeleteProductFunc(ctx, id)
}

type mockDiscounts struct {
	ApplyDiscountFunc  func(ctx context.Context, productID int, percent decimal.Decimal) (*domain.Product, error)
	RemoveDiscountFunc func(ctx context.Context, productID int) (*domain.Product, error)
}

func (m *mockDiscounts) ApplyDiscount(ctx context.Context, productID int, percent decimal.Decimal) (*domain.Product, error) {
	return m.ApplyDiscountFunc(ctx, productID, percent)
}

func (m *mockDiscounts) RemoveDiscount(ctx context.Context, productID int) (*domain.Product, error) {
	return m.RemoveDiscountFunc(ctx, productID)
}

type mockLedger struct {
	AdminSetQuantityFunc func(ctx context.Context, productID int, quantity int) error
}

func (m *mockLedger) AdminSetQuantity(ctx context.Context, productID int, quantity int) error {
	return m.AdminSetQuantityFunc(ctx, productID, quantity)
}

var distributor = auth.Principal{UserID: "u-7", Role: auth.RoleDistributor, DistributorID: 7}

func ownedProduct() *domain.Product {
	return &domain.Product{
		ID:              3,
		Name:            "Green Tea",
		BasePrice:       decimal.NewFromInt(100),
		DiscountedPrice: decimal.NewFromInt(100),
		Quantity:        10,
		OwnerID:         7,
	}
}

func serve(t *testing.T, method, pattern, target, body string, p auth.Principal, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Method(method, pattern, handler)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body respond.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestCreate_Success(t *testing.T) {
	catalog := &mockCatalog{
		CreateProductFunc: func(ctx context.Context, ownerID int, in service.CreateProductInput) (*domain.Product, error) {
			assert.Equal(t, 7, ownerID)
			assert.Equal(t, "19.99", in.BasePrice.String())
			p := ownedProduct()
			p.Name = in.Name
			return p, nil
		},
	}
	c := NewProductController(catalog, &mockDiscounts{}, &mockLedger{}, zap.NewNop())

	body := `{"name":"Green Tea","basePrice":19.99,"quantity":10,"images":["a.png"]}`
	rec := serve(t, http.MethodPost, "/product", "/product", body, distributor, c.Create)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.ProductResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Green Tea", resp.Name)
	assert.Equal(t, 10, resp.AvailableQuantity)
}

func TestCreate_DuplicateName(t *testing.T) {
	catalog := &mockCatalog{
		CreateProductFunc: func(ctx context.Context, ownerID int, in service.CreateProductInput) (*domain.Product, error) {
			return nil, apperrors.NewDuplicateNameError(in.Name)
		},
	}
	c := NewProductController(catalog, &mockDiscounts{}, &mockLedger{}, zap.NewNop())

	rec := serve(t, http.MethodPost, "/product", "/product", `{"name":"Green Tea","basePrice":"1","images":["a"]}`, distributor, c.Create)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "DUPLICATE_NAME", errorCode(t, rec))
}

func TestCreate_RequiresDistributor(t *testing.T) {
	c := NewProductController(&mockCatalog{}, &mockDiscounts{}, &mockLedger{}, zap.NewNop())
	retailer := auth.Principal{UserID: "r", Role: auth.RoleRetailer}

	rec := serve(t, http.MethodPost, "/product", "/product", `{}`, retailer, c.Create)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGet_InvalidID(t *testing.T) {
	c := NewProductController(&mockCatalog{}, &mockDiscounts{}, &mockLedger{}, zap.NewNop())

	rec := serve(t, http.MethodGet, "/product/{id}", "/product/abc", "", distributor, c.Get)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestGet_NotFound(t *testing.T) {
	catalog := &mockCatalog{
		GetProductFunc: func(ctx context.Context, id int) (*domain.Product, error) {
			return nil, apperrors.NewNotFoundError("product with id 9 not found")
		},
	}
	c := NewProductController(catalog, &mockDiscounts{}, &mockLedger{}, zap.NewNop())

	rec := serve(t, http.MethodGet, "/product/{id}", "/product/9", "", distributor, c.Get)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdate_ForbiddenForOtherOwner(t *testing.T) {
	catalog := &mockCatalog{
		GetProductFunc: func(ctx context.Context, id int) (*domain.Product, error) {
			p := ownedProduct()
			p.OwnerID = 99
			return p, nil
		},
		UpdateDetailsFunc: func(ctx context.Context, id int, in service.UpdateProductInput) (*domain.Product, error) {
			t.Fatal("update must not run")
			return nil, nil
		},
	}
	c := NewProductController(catalog, &mockDiscounts{}, &mockLedger{}, zap.NewNop())

	rec := serve(t, http.MethodPut, "/product/{id}", "/product/3", `{"name":"x"}`, distributor, c.Update)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdate_PassesOnlySuppliedFields(t *testing.T) {
	catalog := &mockCatalog{
		GetProductFunc: func(ctx context.Context, id int) (*domain.Product, error) { return ownedProduct(), nil },
		UpdateDetailsFunc: func(ctx context.Context, id int, in service.UpdateProductInput) (*domain.Product, error) {
			assert.Nil(t, in.Name)
			assert.Nil(t, in.BasePrice)
			require.NotNil(t, in.Category)
			assert.Equal(t, "snacks", *in.Category)
			return ownedProduct(), nil
		},
	}
	c := NewProductController(catalog, &mockDiscounts{}, &mockLedger{}, zap.NewNop())

	rec := serve(t, http.MethodPut, "/product/{id}", "/product/3", `{"category":"snacks"}`, distributor, c.Update)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateStock(t *testing.T) {
	var setTo int
	catalog := &mockCatalog{
		GetProductFunc: func(ctx context.Context, id int) (*domain.Product, error) {
			p := ownedProduct()
			if setTo > 0 {
				p.Quantity = setTo
			}
			return p, nil
		},
	}
	ledger := &mockLedger{
		AdminSetQuantityFunc: func(ctx context.Context, productID int, quantity int) error {
			setTo = quantity
			return nil
		},
	}
	c := NewProductController(catalog, &mockDiscounts{}, ledger, zap.NewNop())

	rec := serve(t, http.MethodPatch, "/product/updateStock/{id}", "/product/updateStock/3", `{"quantity":25}`, distributor, c.UpdateStock)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ProductResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 25, resp.Quantity)
}

func TestUpdateStock_NegativeQuantity(t *testing.T) {
	catalog := &mockCatalog{
		GetProductFunc: func(ctx context.Context, id int) (*domain.Product, error) { return ownedProduct(), nil },
	}
	ledger := &mockLedger{
		AdminSetQuantityFunc: func(ctx context.Context, productID int, quantity int) error {
			return apperrors.NewInvalidQuantityError("quantity must be non-negative, got -1")
		},
	}
	c := NewProductController(catalog, &mockDiscounts{}, ledger, zap.NewNop())

	rec := serve(t, http.MethodPatch, "/product/updateStock/{id}", "/product/updateStock/3", `{"quantity":-1}`, distributor, c.UpdateStock)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_QUANTITY", errorCode(t, rec))
}

func TestAddDiscount(t *testing.T) {
	catalog := &mockCatalog{
		GetProductFunc: func(ctx context.Context, id int) (*domain.Product, error) { return ownedProduct(), nil },
	}
	discounts := &mockDiscounts{
		ApplyDiscountFunc: func(ctx context.Context, productID int, percent decimal.Decimal) (*domain.Product, error) {
			p := ownedProduct()
			p.ApplyDiscount(percent)
			return p, nil
		},
	}
	c := NewProductController(catalog, discounts, &mockLedger{}, zap.NewNop())

	rec := serve(t, http.MethodPost, "/product/add-discount/{id}", "/product/add-discount/3", `{"discountPercent":20}`, distributor, c.AddDiscount)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ProductResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "80.00", resp.DiscountedPrice)
	assert.Equal(t, "80.00", resp.Price)
}

func TestAddDiscount_MissingPercent(t *testing.T) {
	catalog := &mockCatalog{
		GetProductFunc: func(ctx context.Context, id int) (*domain.Product, error) { return ownedProduct(), nil },
	}
	c := NewProductController(catalog, &mockDiscounts{}, &mockLedger{}, zap.NewNop())

	rec := serve(t, http.MethodPost, "/product/add-discount/{id}", "/product/add-discount/3", `{}`, distributor, c.AddDiscount)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "discountPercent")
}

func TestDelete_AdminOverridesOwnership(t *testing.T) {
	deleted := false
	catalog := &mockCatalog{
		GetProductFunc: func(ctx context.Context, id int) (*domain.Product, error) { return ownedProduct(), nil },
		DeleteProductFunc: func(ctx context.Context, id int) error {
			deleted = true
			return nil
		},
	}
	c := NewProductController(catalog, &mockDiscounts{}, &mockLedger{}, zap.NewNop())
	admin := auth.Principal{UserID: "a", Role: auth.RoleAdmin}

	rec := serve(t, http.MethodDelete, "/product/{id}", "/product/3", "", admin, c.Delete)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, deleted)
}

func TestList_FiltersByCategory(t *testing.T) {
	catalog := &mockCatalog{
		ListAllFunc: func(ctx context.Context, category string) ([]domain.Product, error) {
			assert.Equal(t, "tea", category)
			return []domain.Product{*ownedProduct()}, nil
		},
	}
	c := NewProductController(catalog, &mockDiscounts{}, &mockLedger{}, zap.NewNop())

	rec := serve(t, http.MethodGet, "/product", "/product?category=tea", "", distributor, c.List)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ProductListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Products, 1)
}
