package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradeflow/internal/domain"
	apperrors "tradeflow/internal/errors"
)

type DiscountService struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewDiscountService(repo Repository, logger *zap.Logger) *DiscountService {
	return &DiscountService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ApplyDiscount sets the discount percent and recomputes the discounted
// price from the stored base price under a row lock.
func (s *DiscountService) ApplyDiscount(ctx context.Context, productID int, percent decimal.Decimal) (*domain.Product, error) {
	if !domain.ValidDiscountPercent(percent) {
		return nil, apperrors.NewInvalidDiscountError(fmt.Sprintf("discount percent must be between 0 and 100 with at most 2 decimal places, got %s", percent))
	}

	p, err := s.repo.Update(ctx, productID, func(p *domain.Product) error {
		p.ApplyDiscount(percent)
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, notFound(err, productID)
	}

	s.logger.Info("discount applied",
		zap.Int("productId", productID),
		zap.String("percent", percent.String()),
		zap.String("discountedPrice", p.DiscountedPrice.StringFixed(2)))
	return p, nil
}

// RemoveDiscount resets the percent to zero and the discounted price to the base price.
func (s *DiscountService) RemoveDiscount(ctx context.Context, productID int) (*domain.Product, error) {
	p, err := s.repo.Update(ctx, productID, func(p *domain.Product) error {
		p.RemoveDiscount()
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, notFound(err, productID)
	}

	s.logger.Info("discount removed", zap.Int("productId", productID))
	return p, nil
}
