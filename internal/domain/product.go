package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID              int
	Name            string
	Description     string
	BasePrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountedPrice decimal.Decimal
	Quantity        int
	HoldQuantity    int
	Category        string
	Images          []string
	OwnerID         int
	IsDeleted       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AvailableStock is the quantity a new reservation may still claim.
func (p Product) AvailableStock() int {
	available := p.Quantity - p.HoldQuantity
	if available < 0 {
		return 0
	}
	return available
}

func (p Product) HasDiscount() bool {
	return p.DiscountPercent.IsPositive()
}

// EffectivePrice is the authoritative unit price used when an order is assembled.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.HasDiscount() {
		return p.DiscountedPrice
	}
	return p.BasePrice
}
