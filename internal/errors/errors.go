package errors

import (
	"errors"
	"fmt"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}

// Kind classifies an AppError. Controllers map kinds to HTTP status codes.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindInvalidSpec        Kind = "INVALID_SPEC"
	KindInvalidDiscount    Kind = "INVALID_DISCOUNT"
	KindInvalidQuantity    Kind = "INVALID_QUANTITY"
	KindDuplicateName      Kind = "DUPLICATE_NAME"
	KindInsufficientStock  Kind = "INSUFFICIENT_STOCK"
	KindUnknownProduct     Kind = "UNKNOWN_PRODUCT"
	KindConflict           Kind = "CONFLICT"
	KindReservationExpired Kind = "RESERVATION_EXPIRED"
	KindPersistenceFailure Kind = "PERSISTENCE_FAILURE"
	KindForbidden          Kind = "FORBIDDEN"
	KindUnauthorized       Kind = "UNAUTHORIZED"
)

type AppError struct {
	Kind    Kind
	Message string
	// ProductID names the offending product for stock and catalog errors, 0 otherwise.
	ProductID int
	// ProductIDs lists every missing product for UNKNOWN_PRODUCT.
	ProductIDs []int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return newAppError(KindNotFound, message)
}

func NewInvalidSpecError(message string) *AppError {
	return newAppError(KindInvalidSpec, message)
}

func NewInvalidDiscountError(message string) *AppError {
	return newAppError(KindInvalidDiscount, message)
}

func NewInvalidQuantityError(message string) *AppError {
	return newAppError(KindInvalidQuantity, message)
}

func NewDuplicateNameError(name string) *AppError {
	return newAppError(KindDuplicateName, fmt.Sprintf("product name %q already exists", name))
}

func NewInsufficientStockError(productID, requested, available int) *AppError {
	return &AppError{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", productID, requested, available),
		ProductID: productID,
	}
}

func NewUnknownProductError(productIDs []int) *AppError {
	e := &AppError{
		Kind:       KindUnknownProduct,
		Message:    fmt.Sprintf("unknown products %v", productIDs),
		ProductIDs: productIDs,
	}
	if len(productIDs) > 0 {
		e.ProductID = productIDs[0]
	}
	return e
}

func NewConflictError(message string) *AppError {
	return newAppError(KindConflict, message)
}

func NewReservationExpiredError(token string) *AppError {
	return newAppError(KindReservationExpired, fmt.Sprintf("reservation %s is unknown or no longer held", token))
}

func NewPersistenceFailureError(message string, cause error) *AppError {
	return &AppError{Kind: KindPersistenceFailure, Message: message, Cause: cause}
}

func NewForbiddenError(message string) *AppError {
	return newAppError(KindForbidden, message)
}

func NewUnauthorizedError(message string) *AppError {
	return newAppError(KindUnauthorized, message)
}

// KindOf returns the kind of the first AppError in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func isKind(err error, kind Kind) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) && ae.Kind == kind {
		return ae, true
	}
	return nil, false
}

func IsNotFoundError(err error) (*AppError, bool) {
	return isKind(err, KindNotFound)
}

func IsConflictError(err error) (*AppError, bool) {
	return isKind(err, KindConflict)
}

func IsForbiddenError(err error) (*AppError, bool) {
	return isKind(err, KindForbidden)
}

func IsInsufficientStockError(err error) (*AppError, bool) {
	return isKind(err, KindInsufficientStock)
}

func IsUnknownProductError(err error) (*AppError, bool) {
	return isKind(err, KindUnknownProduct)
}

func IsReservationExpiredError(err error) (*AppError, bool) {
	return isKind(err, KindReservationExpired)
}

func IsPersistenceFailureError(err error) (*AppError, bool) {
	return isKind(err, KindPersistenceFailure)
}
