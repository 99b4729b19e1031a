package domain

import (
	"errors"
	"fmt"
	"time"
)

type ReservationStatus string

const (
	ReservationHeld      ReservationStatus = "HELD"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationCommitted ReservationStatus = "COMMITTED"
	// ReservationRestored marks a committed reservation whose quantity was put back.
	ReservationRestored ReservationStatus = "RESTORED"
)

// Reservation is a stock hold against a single product, addressed by its token.
type Reservation struct {
	Token     string
	ProductID int
	Quantity  int
	Status    ReservationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Errors returned by stock stores. The ledger service translates them into
// application errors.
var (
	ErrWriteConflict       = errors.New("concurrent write conflict")
	ErrStockShortfall      = errors.New("stock shortfall")
	ErrProductMissing      = errors.New("product missing")
	ErrReservationNotHeld  = errors.New("reservation not held")
	ErrReservationNotFound = errors.New("reservation not found")
)

// ShortfallError reports that a product could not cover a requested quantity.
// It matches ErrStockShortfall under errors.Is.
type ShortfallError struct {
	ProductID int
	Requested int
	Available int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *ShortfallError) Is(target error) bool {
	return target == ErrStockShortfall
}
