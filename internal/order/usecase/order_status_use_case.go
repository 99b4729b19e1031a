package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"tradeflow/internal/domain"
	apperrors "tradeflow/internal/errors"
)

func (uc *OrderUseCase) GetOrder(ctx context.Context, id uint) (*domain.Order, error) {
	return uc.orders.FindByID(ctx, id)
}

func (uc *OrderUseCase) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := uc.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// UpdateStatus moves an order along its lifecycle. Rejecting an order puts
// its committed stock back. Rejecting an already rejected order re-runs the
// restores, so a reject whose restore failed can be retried until the stock
// is back.
func (uc *OrderUseCase) UpdateStatus(ctx context.Context, id uint, to domain.OrderStatus) (*domain.Order, error) {
	logger := uc.logger.With(zap.Uint("orderId", id))

	if !to.Valid() {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "status",
			Message: fmt.Sprintf("unknown order status %q", to),
		})
	}

	order, err := uc.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if from == domain.OrderStatusRejected && to == domain.OrderStatusRejected {
		if err := uc.restoreAll(ctx, logger, order.Items); err != nil {
			return nil, apperrors.NewPersistenceFailureError(
				fmt.Sprintf("order %d is rejected but stock restore failed", id), err)
		}
		logger.Info("rejected order stock restore re-run")
		return order, nil
	}
	if !from.CanTransitionTo(to) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("order %d cannot move from %s to %s", id, from, to))
	}

	if err := uc.orders.UpdateStatus(ctx, id, from, to); err != nil {
		return nil, err
	}
	order.Status = to
	order.UpdatedAt = uc.now()

	logger.Info("order status changed", zap.String("from", string(from)), zap.String("to", string(to)))

	if to == domain.OrderStatusRejected {
		if err := uc.restoreAll(ctx, logger, order.Items); err != nil {
			return nil, apperrors.NewPersistenceFailureError(
				fmt.Sprintf("order %d rejected but stock restore failed", id), err)
		}
	}

	if err := uc.events.OrderStatusChanged(ctx, id, from, to); err != nil {
		logger.Warn("publishing OrderStatusChanged failed", zap.Error(err))
	}

	return order, nil
}
