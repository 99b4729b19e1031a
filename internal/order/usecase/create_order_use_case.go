package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"tradeflow/internal/domain"
	"tradeflow/internal/dto"
	apperrors "tradeflow/internal/errors"
	"tradeflow/internal/order/pricing"
)

const maxLineQuantity = 10000

type CatalogReader interface {
	GetProducts(ctx context.Context, ids []int) (found []domain.Product, notFoundIDs []int, err error)
}

type StockLedger interface {
	Reserve(ctx context.Context, productID int, quantity int) (*domain.Reservation, error)
	Release(ctx context.Context, token string) error
	Commit(ctx context.Context, token string) (*domain.Reservation, error)
	Restore(ctx context.Context, token string) error
	Lookup(ctx context.Context, token string) (*domain.Reservation, error)
}

type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uint) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id uint, from, to domain.OrderStatus) error
}

type EventPublisher interface {
	OrderCreated(ctx context.Context, order *domain.Order) error
	OrderStatusChanged(ctx context.Context, orderID uint, from, to domain.OrderStatus) error
}

type OrderUseCase struct {
	catalog  CatalogReader
	ledger   StockLedger
	orders   OrderRepository
	policy   pricing.Policy
	events   EventPublisher
	logger   *zap.Logger
	maxItems int
	now      func() time.Time
}

func NewOrderUseCase(
	catalog CatalogReader,
	ledger StockLedger,
	orders OrderRepository,
	policy pricing.Policy,
	events EventPublisher,
	logger *zap.Logger,
	maxItems int,
) *OrderUseCase {
	return &OrderUseCase{
		catalog:  catalog,
		ledger:   ledger,
		orders:   orders,
		policy:   policy,
		events:   events,
		logger:   logger,
		maxItems: maxItems,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// heldLine is an order line backed by a stock hold. owned is false when the
// hold was adopted from the caller's cart rather than granted by this call.
type heldLine struct {
	item  domain.OrderItem
	owned bool
}

// CreateOrder prices every line from the catalog, reserves and commits the
// stock, and persists a pending order. Failures before commit leave no side
// effect; failures after commit restore the committed stock.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, userID string, in dto.CreateOrderInput) (*domain.Order, error) {
	logger := uc.logger.With(zap.String("userId", userID))
	logger.Info("create order started", zap.Int("lineCount", len(in.Lines)))

	if err := uc.validateLines(in.Lines); err != nil {
		return nil, err
	}

	// Lines are handled in product id order so concurrent orders lock
	// products in the same sequence.
	lines := make([]dto.OrderLine, len(in.Lines))
	copy(lines, in.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	ids := make([]int, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}

	found, missing, err := uc.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		logger.Warn("order references unknown products", zap.Ints("productIds", missing))
		return nil, apperrors.NewUnknownProductError(missing)
	}

	products := make(map[int]domain.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}

	held, err := uc.reserveAll(ctx, logger, lines, products)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, len(held))
	for i, h := range held {
		items[i] = h.item
	}

	itemsPrice := domain.ItemsTotal(items).Round(2)
	taxPrice := uc.policy.Tax(itemsPrice)
	shippingPrice := uc.policy.Shipping(itemsPrice)

	now := uc.now()
	order := &domain.Order{
		UserID:          userID,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ItemsPrice:      itemsPrice,
		TaxPrice:        taxPrice,
		ShippingPrice:   shippingPrice,
		TotalPrice:      itemsPrice.Add(taxPrice).Add(shippingPrice),
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := uc.commitAll(ctx, logger, held); err != nil {
		return nil, err
	}

	if err := uc.orders.Save(ctx, order); err != nil {
		logger.Error("persisting order failed after stock commit, restoring stock", zap.Error(err))
		uc.restoreAll(ctx, logger, items)
		return nil, apperrors.NewPersistenceFailureError("persisting order", err)
	}

	logger.Info("order created",
		zap.Uint("orderId", order.ID),
		zap.String("totalPrice", order.TotalPrice.StringFixed(2)))

	if err := uc.events.OrderCreated(ctx, order); err != nil {
		logger.Warn("publishing OrderCreated failed", zap.Uint("orderId", order.ID), zap.Error(err))
	}

	return order, nil
}

func (uc *OrderUseCase) validateLines(lines []dto.OrderLine) error {
	var details []apperrors.ValidationDetail

	if len(lines) == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "orderItems",
			Message: "orderItems must not be empty",
		})
	}

	if uc.maxItems > 0 && len(lines) > uc.maxItems {
		details = append(details, apperrors.ValidationDetail{
			Field:   "orderItems",
			Message: fmt.Sprintf("orderItems exceeds maximum of %d", uc.maxItems),
		})
	}

	seen := make(map[int]bool, len(lines))
	for idx, line := range lines {
		field := "orderItems[" + strconv.Itoa(idx) + "]"

		if line.ProductID <= 0 {
			details = append(details, apperrors.ValidationDetail{
				Field:   field + ".productId",
				Message: "each productId must be a positive integer",
			})
		}

		if seen[line.ProductID] {
			details = append(details, apperrors.ValidationDetail{
				Field:   field + ".productId",
				Message: "productId must not be duplicated",
			})
		}
		seen[line.ProductID] = true

		if line.Quantity < 1 || line.Quantity > maxLineQuantity {
			details = append(details, apperrors.ValidationDetail{
				Field:   field + ".quantity",
				Message: fmt.Sprintf("quantity must be between 1 and %d", maxLineQuantity),
			})
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}

// reserveAll obtains a hold for every line. On the first failure it releases
// the holds it granted and returns that failure.
func (uc *OrderUseCase) reserveAll(ctx context.Context, logger *zap.Logger, lines []dto.OrderLine, products map[int]domain.Product) ([]heldLine, error) {
	held := make([]heldLine, 0, len(lines))

	for _, line := range lines {
		product := products[line.ProductID]

		token, owned, err := uc.holdFor(ctx, line)
		if err != nil {
			logger.Warn("reservation failed, releasing granted holds",
				zap.Int("productId", line.ProductID), zap.Int("quantity", line.Quantity), zap.Error(err))
			uc.releaseOwned(ctx, logger, held)
			return nil, err
		}

		held = append(held, heldLine{
			item: domain.OrderItem{
				ProductID:        product.ID,
				OwnerID:          product.OwnerID,
				Name:             product.Name,
				Quantity:         line.Quantity,
				UnitPrice:        product.EffectivePrice(),
				ReservationToken: token,
			},
			owned: owned,
		})
	}

	return held, nil
}

// holdFor adopts the line's cart hold when it still covers exactly this
// product and quantity, and reserves a new hold otherwise.
func (uc *OrderUseCase) holdFor(ctx context.Context, line dto.OrderLine) (token string, owned bool, err error) {
	if line.ReservationToken != "" {
		r, err := uc.ledger.Lookup(ctx, line.ReservationToken)
		switch {
		case err == nil && r.Status == domain.ReservationHeld &&
			r.ProductID == line.ProductID && r.Quantity == line.Quantity:
			return r.Token, false, nil
		case err != nil && apperrors.KindOf(err) != apperrors.KindNotFound:
			return "", false, err
		}
	}

	r, err := uc.ledger.Reserve(ctx, line.ProductID, line.Quantity)
	if err != nil {
		return "", false, err
	}
	return r.Token, true, nil
}

// commitAll commits every hold in order. If one fails, the holds committed so
// far are restored and the remaining owned holds released.
func (uc *OrderUseCase) commitAll(ctx context.Context, logger *zap.Logger, held []heldLine) error {
	for i, h := range held {
		if _, err := uc.ledger.Commit(ctx, h.item.ReservationToken); err != nil {
			logger.Error("stock commit failed, compensating",
				zap.Int("productId", h.item.ProductID), zap.Error(err))

			committed := make([]domain.OrderItem, i)
			for j := range committed {
				committed[j] = held[j].item
			}
			uc.restoreAll(ctx, logger, committed)
			uc.releaseOwned(ctx, logger, held[i:])
			return err
		}
	}
	return nil
}

func (uc *OrderUseCase) releaseOwned(ctx context.Context, logger *zap.Logger, held []heldLine) {
	ctx = context.WithoutCancel(ctx)
	for _, h := range held {
		if !h.owned {
			continue
		}
		if err := uc.ledger.Release(ctx, h.item.ReservationToken); err != nil {
			logger.Error("releasing hold failed",
				zap.String("token", h.item.ReservationToken), zap.Int("productId", h.item.ProductID), zap.Error(err))
		}
	}
}

// restoreAll puts committed stock back. It runs detached from ctx so that a
// cancelled request still compensates.
func (uc *OrderUseCase) restoreAll(ctx context.Context, logger *zap.Logger, items []domain.OrderItem) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, item := range items {
		if err := uc.ledger.Restore(ctx, item.ReservationToken); err != nil {
			logger.Error("restoring committed stock failed",
				zap.String("token", item.ReservationToken), zap.Int("productId", item.ProductID),
				zap.Int("quantity", item.Quantity), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
