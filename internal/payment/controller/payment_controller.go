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
	"tradeflow/internal/payment/service"
	"tradeflow/internal/server/respond"
)

type PaymentService interface {
	Initiate(ctx context.Context, userID string, in service.InitiateInput) (*domain.PaymentRecord, error)
	RecordOutcome(ctx context.Context, ref string, outcome domain.PaymentStatus) (*domain.PaymentRecord, error)
	ListByDistributor(ctx context.Context, distributorID int) ([]domain.PaymentRecord, error)
}

type PaymentController struct {
	payments PaymentService
	logger   *zap.Logger
}

func NewPaymentController(payments PaymentService, logger *zap.Logger) *PaymentController {
	return &PaymentController{payments: payments, logger: logger}
}

func (c *PaymentController) Initiate(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req dto.InitiatePaymentRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	payment, err := c.payments.Initiate(r.Context(), p.UserID, service.InitiateInput{
		OrderID:       req.OrderID,
		DistributorID: req.DistributorID,
		PaymentMethod: req.PaymentMethod,
		ProviderRef:   req.ProviderRef,
	})
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusCreated, dto.NewPaymentResponse(*payment))
}

func (c *PaymentController) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	var req dto.PaymentOutcomeRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}

	payment, err := c.payments.RecordOutcome(r.Context(), chi.URLParam(r, "providerRef"), domain.PaymentStatus(req.Status))
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, dto.NewPaymentResponse(*payment))
}

// ListForDistributor lists the payments made to the calling distributor.
// Admins name the distributor with ?distributorId=.
func (c *PaymentController) ListForDistributor(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	distributorID := p.DistributorID
	if p.Role == auth.RoleAdmin {
		id, err := strconv.Atoi(r.URL.Query().Get("distributorId"))
		if err != nil || id <= 0 {
			respond.ValidationFailed(w, c.logger, "invalid distributorId", apperrors.ValidationDetail{
				Field:   "distributorId",
				Message: "distributorId must be a positive integer",
			})
			return
		}
		distributorID = id
	}
	if distributorID <= 0 {
		respond.Error(w, r, c.logger, apperrors.NewForbiddenError("caller is not a distributor"))
		return
	}

	payments, err := c.payments.ListByDistributor(r.Context(), distributorID)
	if err != nil {
		respond.Error(w, r, c.logger, err)
		return
	}
	respond.JSON(w, c.logger, http.StatusOK, dto.NewPaymentListResponse(payments))
}
