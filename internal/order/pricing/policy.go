// Package pricing derives the tax and shipping charges of an order from its
// items total.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradeflow/internal/config"
)

// Policy must be a pure function of the items total.
type Policy interface {
	Tax(itemsPrice decimal.Decimal) decimal.Decimal
	Shipping(itemsPrice decimal.Decimal) decimal.Decimal
}

// FlatRate charges a fixed tax rate and a flat shipping fee that is waived
// above a threshold.
type FlatRate struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

func NewFlatRate(cfg config.OrderConfig) (*FlatRate, error) {
	rate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("parsing order.taxRate: %w", err)
	}
	threshold, err := decimal.NewFromString(cfg.FreeShippingThreshold)
	if err != nil {
		return nil, fmt.Errorf("parsing order.freeShippingThreshold: %w", err)
	}
	fee, err := decimal.NewFromString(cfg.FlatShippingFee)
	if err != nil {
		return nil, fmt.Errorf("parsing order.flatShippingFee: %w", err)
	}
	if rate.IsNegative() || threshold.IsNegative() || fee.IsNegative() {
		return nil, fmt.Errorf("order pricing values must be non-negative")
	}
	return &FlatRate{TaxRate: rate, FreeShippingThreshold: threshold, FlatShippingFee: fee}, nil
}

func (p *FlatRate) Tax(itemsPrice decimal.Decimal) decimal.Decimal {
	return itemsPrice.Mul(p.TaxRate).Round(2)
}

func (p *FlatRate) Shipping(itemsPrice decimal.Decimal) decimal.Decimal {
	if itemsPrice.GreaterThan(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingFee.Round(2)
}
