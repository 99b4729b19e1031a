package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusRejected   OrderStatus = "rejected"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusRejected},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusRejected},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusRejected:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ShippingAddress struct {
	Address    string
	City       string
	PostalCode string
	Country    string
}

type OrderItem struct {
	ID        uint
	OrderID   uint
	ProductID int
	// OwnerID is the distributor that owned the product when the order was placed.
	OwnerID   int
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	// ReservationToken is the committed stock reservation backing this line.
	ReservationToken string
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID              uint
	UserID          string
	Items           []OrderItem
	ShippingAddress ShippingAddress
	PaymentMethod   string
	ItemsPrice      decimal.Decimal
	TaxPrice        decimal.Decimal
	ShippingPrice   decimal.Decimal
	TotalPrice      decimal.Decimal
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Involves reports whether any line of the order is owned by ownerID.
func (o Order) Involves(ownerID int) bool {
	for _, item := range o.Items {
		if item.OwnerID == ownerID {
			return true
		}
	}
	return false
}

// OwnedBy reports whether every line of the order is owned by ownerID.
func (o Order) OwnedBy(ownerID int) bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, item := range o.Items {
		if item.OwnerID != ownerID {
			return false
		}
	}
	return true
}

// Owners returns the distinct owners of the order's lines in line order.
func (o Order) Owners() []int {
	var owners []int
	seen := make(map[int]bool, len(o.Items))
	for _, item := range o.Items {
		if !seen[item.OwnerID] {
			seen[item.OwnerID] = true
			owners = append(owners, item.OwnerID)
		}
	}
	return owners
}

// ItemsTotal sums the line totals of the order.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
