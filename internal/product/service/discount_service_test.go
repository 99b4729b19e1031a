package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeflow/internal/domain"
	apperrors "tradeflow/internal/errors"
)

func priced(base string) domain.Product {
	p := domain.Product{ID: 1, BasePrice: decimal.RequireFromString(base)}
	p.DiscountedPrice = p.BasePrice
	return p
}

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		base     string
		percent  string
		expected string
	}{
		{"100", "20", "80.00"},
		{"100", "0", "100.00"},
		{"100", "100", "0.00"},
		{"19.99", "15", "16.99"},
		{"10.05", "50", "5.03"},
		{"49.95", "12.5", "43.71"},
	}

	for _, tt := range tests {
		t.Run(tt.base+"@"+tt.percent, func(t *testing.T) {
			svc := NewDiscountService(updatingRepo(priced(tt.base)), zap.NewNop())

			p, err := svc.ApplyDiscount(context.Background(), 1, decimal.RequireFromString(tt.percent))

			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.DiscountedPrice.StringFixed(2))
			assert.True(t, p.DiscountPercent.Equal(decimal.RequireFromString(tt.percent)))
		})
	}
}

func TestApplyDiscount_OutOfRange(t *testing.T) {
	svc := NewDiscountService(&mockRepository{}, zap.NewNop())

	for _, percent := range []string{"-0.01", "100.01", "250"} {
		_, err := svc.ApplyDiscount(context.Background(), 1, decimal.RequireFromString(percent))
		assert.Equal(t, apperrors.KindInvalidDiscount, apperrors.KindOf(err), percent)
	}
}

func TestApplyDiscount_RejectsFinerThanCents(t *testing.T) {
	svc := NewDiscountService(updatingRepo(priced("100")), zap.NewNop())

	_, err := svc.ApplyDiscount(context.Background(), 1, decimal.RequireFromString("33.335"))
	assert.Equal(t, apperrors.KindInvalidDiscount, apperrors.KindOf(err))

	p, err := svc.ApplyDiscount(context.Background(), 1, decimal.RequireFromString("33.34"))
	require.NoError(t, err)
	assert.Equal(t, domain.DiscountedPrice(p.BasePrice, p.DiscountPercent.Round(2)).StringFixed(2), p.DiscountedPrice.StringFixed(2))
	assert.Equal(t, "66.66", p.DiscountedPrice.StringFixed(2))
}

func TestApplyDiscount_NotFound(t *testing.T) {
	svc := NewDiscountService(updatingRepo(priced("10")), zap.NewNop())

	_, err := svc.ApplyDiscount(context.Background(), 2, decimal.NewFromInt(10))
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestRemoveDiscount_RestoresBasePrice(t *testing.T) {
	stored := priced("100")
	stored.ApplyDiscount(decimal.NewFromInt(20))
	svc := NewDiscountService(updatingRepo(stored), zap.NewNop())

	p, err := svc.RemoveDiscount(context.Background(), 1)

	require.NoError(t, err)
	assert.True(t, p.DiscountPercent.IsZero())
	assert.Equal(t, "100.00", p.DiscountedPrice.StringFixed(2))
	assert.Equal(t, "100.00", p.EffectivePrice().StringFixed(2))
}
