package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

const DefaultPaymentMethod = "Khalti"

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid || s == PaymentFailed
}

// PaymentRecord is the settlement record of one payment attempt against an order.
type PaymentRecord struct {
	ID            uint
	UserID        string
	DistributorID int
	OrderID       uint
	Amount        decimal.Decimal
	PaymentMethod string
	Status        PaymentStatus
	ProviderRef   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
