package dto

import (
	"time"

	"tradeflow/internal/domain"
)

type InitiatePaymentRequest struct {
	OrderID       uint   `json:"orderId" validate:"gt=0"`
	DistributorID int    `json:"distributorId" validate:"gte=0"`
	PaymentMethod string `json:"paymentMethod" validate:"max=50"`
	ProviderRef   string `json:"providerRef" validate:"required,max=128"`
}

type PaymentOutcomeRequest struct {
	Status string `json:"status" validate:"required,oneof=Paid Failed"`
}

type PaymentResponse struct {
	ID            uint      `json:"id"`
	UserID        string    `json:"userId"`
	DistributorID int       `json:"distributorId"`
	OrderID       uint      `json:"orderId"`
	Amount        string    `json:"amount"`
	PaymentMethod string    `json:"paymentMethod"`
	Status        string    `json:"status"`
	ProviderRef   string    `json:"providerRef"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type PaymentListResponse struct {
	Payments []PaymentResponse `json:"payments"`
}

func NewPaymentResponse(p domain.PaymentRecord) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		UserID:        p.UserID,
		DistributorID: p.DistributorID,
		OrderID:       p.OrderID,
		Amount:        p.Amount.StringFixed(2),
		PaymentMethod: p.PaymentMethod,
		Status:        string(p.Status),
		ProviderRef:   p.ProviderRef,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func NewPaymentListResponse(payments []domain.PaymentRecord) PaymentListResponse {
	resp := PaymentListResponse{Payments: make([]PaymentResponse, 0, len(payments))}
	for _, p := range payments {
		resp.Payments = append(resp.Payments, NewPaymentResponse(p))
	}
	return resp
}
