package dto

import (
	"time"

	"tradeflow/internal/domain"
)

// CreateOrderRequest has no price fields. Unit prices always
// come from the catalog.
type CreateOrderRequest struct {
	OrderItems      []OrderItemRequest `json:"orderItems" validate:"required,min=1,dive"`
	ShippingAddress ShippingAddressDTO `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod" validate:"required,max=50"`
}

type OrderItemRequest struct {
	ProductID int `json:"productId" validate:"gt=0"`
	Quantity  int `json:"quantity" validate:"min=1,max=10000"`
}

type ShippingAddressDTO struct {
	Address    string `json:"address" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

func (a ShippingAddressDTO) ToDomain() domain.ShippingAddress {
	return domain.ShippingAddress{
		Address:    a.Address,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered rejected"`
}

// OrderLine is one requested line of an order. ReservationToken, when set,
// names an existing cart hold to adopt instead of reserving anew.
type OrderLine struct {
	ProductID        int
	Quantity         int
	ReservationToken string
}

type CreateOrderInput struct {
	Lines           []OrderLine
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
}

type OrderItemResponse struct {
	ProductID int    `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

type OrderResponse struct {
	ID              uint                `json:"id"`
	UserID          string              `json:"userId"`
	OrderItems      []OrderItemResponse `json:"orderItems"`
	ShippingAddress ShippingAddressDTO  `json:"shippingAddress"`
	PaymentMethod   string              `json:"paymentMethod"`
	ItemsPrice      string              `json:"itemsPrice"`
	TaxPrice        string              `json:"taxPrice"`
	ShippingPrice   string              `json:"shippingPrice"`
	TotalPrice      string              `json:"totalPrice"`
	Status          string              `json:"status"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
}

func NewOrderResponse(o domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal().StringFixed(2),
		})
	}
	return OrderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		OrderItems: items,
		ShippingAddress: ShippingAddressDTO{
			Address:    o.ShippingAddress.Address,
			City:       o.ShippingAddress.City,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		PaymentMethod: o.PaymentMethod,
		ItemsPrice:    o.ItemsPrice.StringFixed(2),
		TaxPrice:      o.TaxPrice.StringFixed(2),
		ShippingPrice: o.ShippingPrice.StringFixed(2),
		TotalPrice:    o.TotalPrice.StringFixed(2),
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func NewOrderListResponse(orders []domain.Order) OrderListResponse {
	resp := OrderListResponse{Orders: make([]OrderResponse, 0, len(orders))}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, NewOrderResponse(o))
	}
	return resp
}
