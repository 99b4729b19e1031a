package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tradeflow/internal/domain"
	apperrors "tradeflow/internal/errors"
)

type Repository interface {
	Insert(ctx context.Context, p *domain.PaymentRecord) error
	FindByProviderRef(ctx context.Context, ref string) (*domain.PaymentRecord, error)
	ListByDistributor(ctx context.Context, distributorID int) ([]domain.PaymentRecord, error)
	UpdateStatus(ctx context.Context, ref string, from, to domain.PaymentStatus) error
}

type OrderReader interface {
	GetOrder(ctx context.Context, id uint) (*domain.Order, error)
}

type InitiateInput struct {
	OrderID       uint
	DistributorID int
	PaymentMethod string
	ProviderRef   string
}

type PaymentService struct {
	repo   Repository
	orders OrderReader
	logger *zap.Logger
	now    func() time.Time
}

func NewPaymentService(repo Repository, orders OrderReader, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		repo:   repo,
		orders: orders,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Initiate records a pending payment for one of the caller's orders. The
// amount is the order's persisted total, never a client figure.
func (s *PaymentService) Initiate(ctx context.Context, userID string, in InitiateInput) (*domain.PaymentRecord, error) {
	ref := strings.TrimSpace(in.ProviderRef)
	if ref == "" {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "providerRef",
			Message: "providerRef is required",
		})
	}

	order, err := s.orders.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", in.OrderID))
	}
	if order.Status == domain.OrderStatusRejected {
		return nil, apperrors.NewConflictError(fmt.Sprintf("order %d was rejected", in.OrderID))
	}

	distributorID, err := payee(order, in.DistributorID)
	if err != nil {
		return nil, err
	}

	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = domain.DefaultPaymentMethod
	}

	now := s.now()
	p := &domain.PaymentRecord{
		UserID:        userID,
		DistributorID: distributorID,
		OrderID:       order.ID,
		Amount:        order.TotalPrice,
		PaymentMethod: method,
		Status:        domain.PaymentPending,
		ProviderRef:   ref,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("payment initiated",
		zap.Uint("paymentId", p.ID), zap.Uint("orderId", p.OrderID),
		zap.String("providerRef", ref), zap.String("amount", p.Amount.StringFixed(2)))
	return p, nil
}

// payee resolves the distributor a payment is made to. It must own a line of
// the order. When none is named, an order from a single distributor pays that
// distributor.
func payee(order *domain.Order, requested int) (int, error) {
	if requested != 0 {
		if !order.Involves(requested) {
			return 0, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
				Field:   "distributorId",
				Message: fmt.Sprintf("distributor %d has no products in order %d", requested, order.ID),
			})
		}
		return requested, nil
	}

	owners := order.Owners()
	if len(owners) != 1 {
		return 0, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "distributorId",
			Message: "distributorId is required when an order spans several distributors",
		})
	}
	return owners[0], nil
}

// RecordOutcome settles a pending payment as Paid or Failed. Repeating the
// outcome already recorded is a no-op.
func (s *PaymentService) RecordOutcome(ctx context.Context, ref string, outcome domain.PaymentStatus) (*domain.PaymentRecord, error) {
	if outcome != domain.PaymentPaid && outcome != domain.PaymentFailed {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must be Paid or Failed",
		})
	}

	p, err := s.repo.FindByProviderRef(ctx, ref)
	if err != nil {
		return nil, err
	}

	switch p.Status {
	case outcome:
		return p, nil
	case domain.PaymentPending:
	default:
		return nil, apperrors.NewConflictError(fmt.Sprintf("payment %s already settled as %s", ref, p.Status))
	}

	if err := s.repo.UpdateStatus(ctx, ref, domain.PaymentPending, outcome); err != nil {
		return nil, err
	}
	p.Status = outcome
	p.UpdatedAt = s.now()

	s.logger.Info("payment settled", zap.String("providerRef", ref), zap.String("status", string(outcome)))
	return p, nil
}

func (s *PaymentService) ListByDistributor(ctx context.Context, distributorID int) ([]domain.PaymentRecord, error) {
	payments, err := s.repo.ListByDistributor(ctx, distributorID)
	if err != nil {
		return nil, fmt.Errorf("listing payments for distributor %d: %w", distributorID, err)
	}
	return payments, nil
}
