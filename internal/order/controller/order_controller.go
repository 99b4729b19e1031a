package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tradeflow/internal/auth"
	"tradeflow/internal/domain"
	"tradeflow/internal/dto"
	apperrors "tradeflow/internal/errors"
	"tradeflow/internal/server/respond"
)

type OrderUseCase interface {
	CreateOrder(ctx context.Context, userID string, in dto.CreateOrderInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id uint) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id uint, to domain.OrderStatus) (*domain.Order, error)
}

type OrderController struct {
	useCase OrderUseCase
	logger  *zap.Logger
}

func NewOrderController(useCase OrderUseCase, logger *zap.Logger) *OrderController {
	return &OrderController{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req dto.CreateOrderRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	lines := make([]dto.OrderLine, len(req.OrderItems))
	for i, item := range req.OrderItems {
		lines[i] = dto.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	order, err := c.useCase.CreateOrder(r.Context(), p.UserID, dto.CreateOrderInput{
		Lines:           lines,
		ShippingAddress: req.ShippingAddress.ToDomain(),
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	respond.JSON(w, c.logger, http.StatusCreated, dto.NewOrderResponse(*order))
}

// ListMine lists the orders placed by the caller.
func (c *OrderController) ListMine(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	orders, err := c.useCase.ListByUser(r.Context(), p.UserID)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, dto.NewOrderListResponse(orders))
}

func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := c.orderID(w, r)
	if !ok {
		return
	}

	order, err := c.useCase.GetOrder(r.Context(), id)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	p, _ := auth.FromContext(r.Context())
	if !canRead(p, order) {
		respond.Error(w, r, c.logger, apperrors.NewNotFoundError("order not found"))
		return
	}

	respond.JSON(w, c.logger, http.StatusOK, dto.NewOrderResponse(*order))
}

func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := c.orderID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	p, _ := auth.FromContext(r.Context())
	if p.Role != auth.RoleAdmin {
		current, err := c.useCase.GetOrder(r.Context(), id)
		if err != nil {
			respond.Error(w, r, c.logger, err)
			return
		}
		if !canRead(p, current) {
			respond.Error(w, r, c.logger, apperrors.NewNotFoundError("order not found"))
			return
		}
		if !current.OwnedBy(p.DistributorID) {
			respond.Error(w, r, c.logger, apperrors.NewForbiddenError(
				"order contains products owned by another distributor"))
			return
		}
	}

	order, err := c.useCase.UpdateStatus(r.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, dto.NewOrderResponse(*order))
}

// canRead reports whether p may see order. Retailers see the orders they
// placed, distributors see orders with at least one of their products.
// Anything else reads as missing.
func canRead(p auth.Principal, order *domain.Order) bool {
	switch p.Role {
	case auth.RoleAdmin:
		return true
	case auth.RoleRetailer:
		return order.UserID == p.UserID
	case auth.RoleDistributor:
		return p.DistributorID != 0 && order.Involves(p.DistributorID)
	default:
		return false
	}
}

func (c *OrderController) orderID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		respond.ValidationFailed(w, c.logger, "invalid order id", apperrors.ValidationDetail{
			Field:   "id",
			Message: "id must be a positive integer",
		})
		return 0, false
	}
	return uint(id), true
}
