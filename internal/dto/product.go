package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"tradeflow/internal/domain"
)

// CreateProductRequest carries only shape constraints. Rules such as a
// non-negative price and at least one image are enforced by the catalog.
type CreateProductRequest struct {
	Name        string          `json:"name" validate:"max=255"`
	Description string          `json:"description"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category" validate:"max=100"`
	Images      []string        `json:"images"`
}

// UpdateProductRequest is a partial update; absent fields stay unchanged.
// Stock is not part of it and goes through updateStock.
type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=255"`
	Description *string          `json:"description"`
	BasePrice   *decimal.Decimal `json:"basePrice"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Images      []string         `json:"images"`
}

type UpdateStockRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type DiscountRequest struct {
	DiscountPercent *decimal.Decimal `json:"discountPercent" validate:"required"`
}

type ProductResponse struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	BasePrice         string    `json:"basePrice"`
	DiscountPercent   string    `json:"discountPercent"`
	DiscountedPrice   string    `json:"discountedPrice"`
	Price             string    `json:"price"`
	Quantity          int       `json:"quantity"`
	HoldQuantity      int       `json:"holdQuantity"`
	AvailableQuantity int       `json:"availableQuantity"`
	Category          string    `json:"category"`
	Images            []string  `json:"images"`
	OwnerID           int       `json:"ownerId"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
}

func NewProductResponse(p domain.Product) ProductResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return ProductResponse{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		BasePrice:         p.BasePrice.StringFixed(2),
		DiscountPercent:   p.DiscountPercent.String(),
		DiscountedPrice:   p.DiscountedPrice.StringFixed(2),
		Price:             p.EffectivePrice().StringFixed(2),
		Quantity:          p.Quantity,
		HoldQuantity:      p.HoldQuantity,
		AvailableQuantity: p.AvailableStock(),
		Category:          p.Category,
		Images:            images,
		OwnerID:           p.OwnerID,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func NewProductListResponse(products []domain.Product) ProductListResponse {
	resp := ProductListResponse{Products: make([]ProductResponse, 0, len(products))}
	for _, p := range products {
		resp.Products = append(resp.Products, NewProductResponse(p))
	}
	return resp
}
