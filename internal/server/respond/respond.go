// Package respond writes JSON responses and maps application errors to
// HTTP status codes.
package respond

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "tradeflow/internal/errors"
)

type ErrorResponse struct {
	TraceID    string    `json:"traceId"`
	Status     int       `json:"status"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	ProductID  int       `json:"productId,omitempty"`
	ProductIDs []int     `json:"productIds,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type ValidationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

var kindStatus = map[apperrors.Kind]int{
	apperrors.KindNotFound:           http.StatusNotFound,
	apperrors.KindInvalidSpec:        http.StatusBadRequest,
	apperrors.KindInvalidDiscount:    http.StatusBadRequest,
	apperrors.KindInvalidQuantity:    http.StatusBadRequest,
	apperrors.KindDuplicateName:      http.StatusBadRequest,
	apperrors.KindInsufficientStock:  http.StatusBadRequest,
	apperrors.KindUnknownProduct:     http.StatusBadRequest,
	apperrors.KindConflict:           http.StatusConflict,
	apperrors.KindReservationExpired: http.StatusConflict,
	apperrors.KindPersistenceFailure: http.StatusInternalServerError,
	apperrors.KindForbidden:          http.StatusForbidden,
	apperrors.KindUnauthorized:       http.StatusUnauthorized,
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(kind apperrors.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// TraceID returns the chi request id, or a fresh uuid outside the router.
func TraceID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func JSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func ValidationFailed(w http.ResponseWriter, logger *zap.Logger, message string, details ...apperrors.ValidationDetail) {
	JSON(w, logger, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

// Error writes err in the shape matching its type. Unclassified errors are
// logged and reported as INTERNAL_ERROR without leaking their text.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		ValidationFailed(w, logger, ve.Message, ve.Details...)
		return
	}

	traceID := TraceID(r)
	logger = logger.With(zap.String("traceId", traceID))

	kind := apperrors.KindOf(err)
	if kind == "" {
		logger.Error("unexpected error", zap.Error(err))
		JSON(w, logger, http.StatusInternalServerError, ErrorResponse{
			TraceID:   traceID,
			Status:    http.StatusInternalServerError,
			Code:      "INTERNAL_ERROR",
			Message:   "an unexpected error occurred",
			Timestamp: time.Now().UTC(),
		})
		return
	}

	status := StatusFor(kind)
	resp := ErrorResponse{
		TraceID:   traceID,
		Status:    status,
		Code:      string(kind),
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
	if ae, ok := apperrors.AsAppError(err); ok {
		resp.Message = ae.Message
		resp.ProductID = ae.ProductID
		resp.ProductIDs = ae.ProductIDs
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("code", resp.Code), zap.Error(err))
		resp.Message = "an unexpected error occurred"
	} else {
		logger.Warn("request rejected", zap.String("code", resp.Code), zap.String("message", resp.Message))
	}
	JSON(w, logger, status, resp)
}
