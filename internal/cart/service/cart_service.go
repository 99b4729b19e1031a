package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradeflow/internal/domain"
	"tradeflow/internal/dto"
	apperrors "tradeflow/internal/errors"
)

const maxLineQuantity = 10000

type Store interface {
	Get(ctx context.Context, userID string) ([]domain.CartItem, error)
	Find(ctx context.Context, userID string, productID int) (*domain.CartItem, error)
	Put(ctx context.Context, userID string, item domain.CartItem) error
	Delete(ctx context.Context, userID string, productID int) error
	Clear(ctx context.Context, userID string) error
}

type Ledger interface {
	Reserve(ctx context.Context, productID int, quantity int) (*domain.Reservation, error)
	Release(ctx context.Context, token string) error
}

type CatalogReader interface {
	GetProducts(ctx context.Context, ids []int) (found []domain.Product, notFoundIDs []int, err error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, userID string, in dto.CreateOrderInput) (*domain.Order, error)
}

// PricedLine is a cart line with the catalog's current price. Available is
// false when the product has since been deleted.
type PricedLine struct {
	domain.CartItem
	Name      string
	UnitPrice decimal.Decimal
	Available bool
}

type PricedCart struct {
	UserID     string
	Lines      []PricedLine
	ItemsPrice decimal.Decimal
	ExpiresAt  time.Time
}

type CartService struct {
	store   Store
	ledger  Ledger
	catalog CatalogReader
	orders  OrderCreator
	holdTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewCartService(store Store, ledger Ledger, catalog CatalogReader, orders OrderCreator, holdTTL time.Duration, logger *zap.Logger) *CartService {
	return &CartService{
		store:   store,
		ledger:  ledger,
		catalog: catalog,
		orders:  orders,
		holdTTL: holdTTL,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetItem puts quantity units of productID in the cart, replacing any
// previous line. The previous hold is released first so the new hold can
// use the same stock. If the new hold cannot be granted the old quantity is
// re-held on a best-effort basis.
func (s *CartService) SetItem(ctx context.Context, userID string, productID, quantity int) (*PricedCart, error) {
	logger := s.logger.With(zap.String("userId", userID), zap.Int("productId", productID))

	if productID <= 0 {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "productId",
			Message: "productId must be a positive integer",
		})
	}
	if quantity < 1 || quantity > maxLineQuantity {
		return nil, apperrors.NewInvalidQuantityError(fmt.Sprintf("quantity must be between 1 and %d, got %d", maxLineQuantity, quantity))
	}

	previous, err := s.store.Find(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if previous != nil {
		if err := s.ledger.Release(ctx, previous.ReservationToken); err != nil {
			return nil, err
		}
	}

	r, err := s.ledger.Reserve(ctx, productID, quantity)
	if err != nil {
		logger.Info("cart hold refused", zap.Int("quantity", quantity), zap.Error(err))
		if previous != nil {
			s.rehold(ctx, logger, userID, *previous)
		}
		return nil, err
	}

	item := domain.CartItem{
		ProductID:        productID,
		Quantity:         quantity,
		ReservationToken: r.Token,
		HeldAt:           s.now(),
	}
	if err := s.store.Put(ctx, userID, item); err != nil {
		s.release(ctx, logger, r.Token)
		return nil, err
	}

	logger.Info("cart line set", zap.Int("quantity", quantity), zap.String("token", r.Token))
	return s.Get(ctx, userID)
}

// rehold tries to restore a line whose hold was released for a failed resize.
// When that fails too the line is dropped.
func (s *CartService) rehold(ctx context.Context, logger *zap.Logger, userID string, previous domain.CartItem) {
	ctx = context.WithoutCancel(ctx)

	r, err := s.ledger.Reserve(ctx, previous.ProductID, previous.Quantity)
	if err != nil {
		logger.Warn("previous cart hold lost, dropping line", zap.Int("quantity", previous.Quantity), zap.Error(err))
		if err := s.store.Delete(ctx, userID, previous.ProductID); err != nil {
			logger.Error("dropping cart line failed", zap.Error(err))
		}
		return
	}

	previous.ReservationToken = r.Token
	previous.HeldAt = s.now()
	if err := s.store.Put(ctx, userID, previous); err != nil {
		logger.Error("restoring cart line failed", zap.Error(err))
		s.release(ctx, logger, r.Token)
	}
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, productID int) (*PricedCart, error) {
	item, err := s.store.Find(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %d is not in the cart", productID))
	}

	if err := s.store.Delete(ctx, userID, productID); err != nil {
		return nil, err
	}
	if err := s.ledger.Release(ctx, item.ReservationToken); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Get returns the cart priced at the catalog's current prices.
func (s *CartService) Get(ctx context.Context, userID string) (*PricedCart, error) {
	items, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart := &PricedCart{UserID: userID, Lines: make([]PricedLine, 0, len(items)), ItemsPrice: decimal.Zero}
	if len(items) == 0 {
		return cart, nil
	}

	ids := make([]int, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	found, _, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("pricing cart: %w", err)
	}
	products := make(map[int]domain.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}

	var latest time.Time
	for _, item := range items {
		line := PricedLine{CartItem: item}
		if p, ok := products[item.ProductID]; ok {
			line.Name = p.Name
			line.UnitPrice = p.EffectivePrice()
			line.Available = true
			cart.ItemsPrice = cart.ItemsPrice.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		if item.HeldAt.After(latest) {
			latest = item.HeldAt
		}
		cart.Lines = append(cart.Lines, line)
	}
	cart.ExpiresAt = latest.Add(s.holdTTL)

	return cart, nil
}

// Clear empties the cart and releases every hold it carried.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	items, err := s.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.Clear(ctx, userID); err != nil {
		return err
	}

	logger := s.logger.With(zap.String("userId", userID))
	for _, item := range items {
		s.release(ctx, logger, item.ReservationToken)
	}
	logger.Info("cart cleared", zap.Int("lineCount", len(items)))
	return nil
}

// Checkout turns the cart into an order. Cart holds that the order adopts
// are committed with it; holds it did not adopt are released afterwards.
func (s *CartService) Checkout(ctx context.Context, userID string, shipping domain.ShippingAddress, paymentMethod string) (*domain.Order, error) {
	logger := s.logger.With(zap.String("userId", userID))

	items, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "cart",
			Message: "cart is empty",
		})
	}

	lines := make([]dto.OrderLine, len(items))
	for i, item := range items {
		lines[i] = dto.OrderLine{
			ProductID:        item.ProductID,
			Quantity:         item.Quantity,
			ReservationToken: item.ReservationToken,
		}
	}

	order, err := s.orders.CreateOrder(ctx, userID, dto.CreateOrderInput{
		Lines:           lines,
		ShippingAddress: shipping,
		PaymentMethod:   paymentMethod,
	})
	if err != nil {
		return nil, err
	}

	adopted := make(map[string]bool, len(order.Items))
	for _, item := range order.Items {
		adopted[item.ReservationToken] = true
	}
	for _, item := range items {
		if !adopted[item.ReservationToken] {
			s.release(ctx, logger, item.ReservationToken)
		}
	}

	if err := s.store.Clear(context.WithoutCancel(ctx), userID); err != nil {
		logger.Error("clearing cart after checkout failed", zap.Uint("orderId", order.ID), zap.Error(err))
	}

	logger.Info("cart checked out", zap.Uint("orderId", order.ID))
	return order, nil
}

func (s *CartService) release(ctx context.Context, logger *zap.Logger, token string) {
	if err := s.ledger.Release(context.WithoutCancel(ctx), token); err != nil {
		logger.Warn("releasing cart hold failed", zap.String("token", token), zap.Error(err))
	}
}
