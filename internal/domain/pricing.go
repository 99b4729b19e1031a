package domain

import "github.com/shopspring/decimal"

var (
	hundred            = decimal.NewFromInt(100)
	MaxDiscountPercent = hundred
)

// ValidDiscountPercent reports whether percent lies in [0, 100] with at most
// two decimal places, the precision the percent is stored with.
func ValidDiscountPercent(percent decimal.Decimal) bool {
	return !percent.IsNegative() &&
		percent.LessThanOrEqual(MaxDiscountPercent) &&
		percent.Equal(percent.Round(2))
}

// DiscountedPrice returns base * (1 - percent/100) rounded half away from zero to cents.
func DiscountedPrice(base, percent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(percent.Div(hundred))
	return base.Mul(factor).Round(2)
}

// ApplyDiscount sets the discount fields of p. The caller validates percent.
func (p *Product) ApplyDiscount(percent decimal.Decimal) {
	p.DiscountPercent = percent
	p.DiscountedPrice = DiscountedPrice(p.BasePrice, percent)
}

// RemoveDiscount clears the discount and restores the base price as the discounted price.
func (p *Product) RemoveDiscount() {
	p.DiscountPercent = decimal.Zero
	p.DiscountedPrice = p.BasePrice.Round(2)
}

// Reprice keeps DiscountedPrice consistent after BasePrice changed.
func (p *Product) Reprice() {
	p.DiscountedPrice = DiscountedPrice(p.BasePrice, p.DiscountPercent)
}
