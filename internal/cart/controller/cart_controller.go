package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"tradeflow/internal/auth"
	"tradeflow/internal/cart/service"
	"tradeflow/internal/domain"
	"tradeflow/internal/dto"
	apperrors "tradeflow/internal/errors"
	"tradeflow/internal/server/respond"
)

type CartService interface {
	Get(ctx context.Context, userID string) (*service.PricedCart, error)
	SetItem(ctx context.Context, userID string, productID, quantity int) (*service.PricedCart, error)
	RemoveItem(ctx context.Context, userID string, productID int) (*service.PricedCart, error)
	Clear(ctx context.Context, userID string) error
	Checkout(ctx context.Context, userID string, shipping domain.ShippingAddress, paymentMethod string) (*domain.Order, error)
}

type CartController struct {
	cart   CartService
	logger *zap.Logger
}

func NewCartController(cart CartService, logger *zap.Logger) *CartController {
	return &CartController{cart: cart, logger: logger}
}

func (c *CartController) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	cart, err := c.cart.Get(r.Context(), p.UserID)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, newCartResponse(cart))
}

func (c *CartController) SetItem(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	productID, ok := c.productID(w, r)
	if !ok {
		return
	}

	var req dto.SetCartItemRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	cart, err := c.cart.SetItem(r.Context(), p.UserID, productID, req.Quantity)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, newCartResponse(cart))
}

func (c *CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	productID, ok := c.productID(w, r)
	if !ok {
		return
	}

	cart, err := c.cart.RemoveItem(r.Context(), p.UserID, productID)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, newCartResponse(cart))
}

func (c *CartController) Clear(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	if err := c.cart.Clear(r.Context(), p.UserID); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CartController) Checkout(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req dto.CheckoutRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	order, err := c.cart.Checkout(r.Context(), p.UserID, req.ShippingAddress.ToDomain(), req.PaymentMethod)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusCreated, dto.NewOrderResponse(*order))
}

func (c *CartController) productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "productId"))
	if err != nil || id <= 0 {
		respond.ValidationFailed(w, c.logger, "invalid productId", apperrors.ValidationDetail{
			Field:   "productId",
			Message: "productId must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func newCartResponse(cart *service.PricedCart) dto.CartResponse {
	resp := dto.CartResponse{
		UserID:     cart.UserID,
		Items:      make([]dto.CartLineResponse, 0, len(cart.Lines)),
		ItemsPrice: cart.ItemsPrice.StringFixed(2),
	}
	for _, line := range cart.Lines {
		item := dto.CartLineResponse{
			ProductID:        line.ProductID,
			Name:             line.Name,
			Quantity:         line.Quantity,
			Available:        line.Available,
			ReservationToken: line.ReservationToken,
			HeldAt:           line.HeldAt,
		}
		if line.Available {
			item.UnitPrice = line.UnitPrice.StringFixed(2)
		}
		resp.Items = append(resp.Items, item)
	}
	if !cart.ExpiresAt.IsZero() {
		expires := cart.ExpiresAt
		resp.ExpiresAt = &expires
	}
	return resp
}
