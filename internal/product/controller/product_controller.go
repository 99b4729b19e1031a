package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradeflow/internal/auth"
	"tradeflow/internal/domain"
	"tradeflow/internal/dto"
	apperrors "tradeflow/internal/errors"
	"tradeflow/internal/product/service"
	"tradeflow/internal/server/respond"
)

type CatalogService interface {
	GetProduct(ctx context.Context, id int) (*domain.Product, error)
	ListByOwner(ctx context.Context, ownerID int) ([]domain.Product, error)
	ListAll(ctx context.Context, category string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, ownerID int, in service.CreateProductInput) (*domain.Product, error)
	UpdateDetails(ctx context.Context, id int, in service.UpdateProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int) error
}

type DiscountService interface {
	ApplyDiscount(ctx context.Context, productID int, percent decimal.Decimal) (*domain.Product, error)
	RemoveDiscount(ctx context.Context, productID int) (*domain.Product, error)
}

type StockLedger interface {
	AdminSetQuantity(ctx context.Context, productID int, quantity int) error
}

type ProductController struct {
	catalog   CatalogService
	discounts DiscountService
	ledger    StockLedger
	logger    *zap.Logger
}

func NewProductController(catalog CatalogService, discounts DiscountService, ledger StockLedger, logger *zap.Logger) *ProductController {
	return &ProductController{
		catalog:   catalog,
		discounts: discounts,
		ledger:    ledger,
		logger:    logger,
	}
}

func (c *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	if p.DistributorID <= 0 {
		respond.Error(w, r, c.logger, apperrors.NewForbiddenError("only distributor accounts can own products"))
		return
	}

	var req dto.CreateProductRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	product, err := c.catalog.CreateProduct(r.Context(), p.DistributorID, service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		BasePrice:   req.BasePrice,
		Quantity:    req.Quantity,
		Category:    req.Category,
		Images:      req.Images,
	})
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	respond.JSON(w, c.logger, http.StatusCreated, dto.NewProductResponse(*product))
}

func (c *ProductController) List(w http.ResponseWriter, r *http.Request) {
	products, err := c.catalog.ListAll(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, dto.NewProductListResponse(products))
}

// ListMine lists the products owned by the calling distributor.
func (c *ProductController) ListMine(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	if p.DistributorID <= 0 {
		respond.Error(w, r, c.logger, apperrors.NewForbiddenError("caller is not a distributor"))
		return
	}

	products, err := c.catalog.ListByOwner(r.Context(), p.DistributorID)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, dto.NewProductListResponse(products))
}

func (c *ProductController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := c.productID(w, r)
	if !ok {
		return
	}

	product, err := c.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, dto.NewProductResponse(*product))
}

func (c *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := c.ownedProductID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	product, err := c.catalog.UpdateDetails(r.Context(), id, service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		BasePrice:   req.BasePrice,
		Category:    req.Category,
		Images:      req.Images,
	})
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, dto.NewProductResponse(*product))
}

func (c *ProductController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := c.ownedProductID(w, r)
	if !ok {
		return
	}

	if err := c.catalog.DeleteProduct(r.Context(), id); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStock overwrites the physical stock count through the ledger.
func (c *ProductController) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := c.ownedProductID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateStockRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	if err := c.ledger.AdminSetQuantity(r.Context(), id, *req.Quantity); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	product, err := c.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, dto.NewProductResponse(*product))
}

func (c *ProductController) AddDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := c.ownedProductID(w, r)
	if !ok {
		return
	}

	var req dto.DiscountRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	product, err := c.discounts.ApplyDiscount(r.Context(), id, *req.DiscountPercent)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, dto.NewProductResponse(*product))
}

func (c *ProductController) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := c.ownedProductID(w, r)
	if !ok {
		return
	}

	product, err := c.discounts.RemoveDiscount(r.Context(), id)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, dto.NewProductResponse(*product))
}

func (c *ProductController) productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respond.ValidationFailed(w, c.logger, "invalid product id", apperrors.ValidationDetail{
			Field:   "id",
			Message: "id must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

// ownedProductID parses the path id and checks that the caller owns the product.
func (c *ProductController) ownedProductID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, ok := c.productID(w, r)
	if !ok {
		return 0, false
	}

	product, err := c.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return 0, false
	}

	p, _ := auth.FromContext(r.Context())
	if !p.Owns(product.OwnerID) {
		respond.Error(w, r, c.logger, apperrors.NewForbiddenError("product belongs to another distributor"))
		return 0, false
	}
	return id, true
}
