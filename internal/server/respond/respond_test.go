package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "tradeflow/internal/errors"
)

func TestError_MapsKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", apperrors.NewNotFoundError("product with id 3 not found"), http.StatusNotFound, "NOT_FOUND"},
		{"insufficient stock", apperrors.NewInsufficientStockError(3, 5, 1), http.StatusBadRequest, "INSUFFICIENT_STOCK"},
		{"duplicate name", apperrors.NewDuplicateNameError("Tea"), http.StatusBadRequest, "DUPLICATE_NAME"},
		{"conflict", fmt.Errorf("wrapped: %w", apperrors.NewConflictError("busy")), http.StatusConflict, "CONFLICT"},
		{"forbidden", apperrors.NewForbiddenError("not yours"), http.StatusForbidden, "FORBIDDEN"},
		{"unexpected", errors.New("driver exploded"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.status, body.Status)
			assert.NotEmpty(t, body.TraceID)
		})
	}
}

func TestError_StockErrorNamesProduct(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodPost, "/order", nil), zap.NewNop(), apperrors.NewInsufficientStockError(42, 3, 1))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 42, body.ProductID)
}

func TestError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apperrors.NewPersistenceFailureError("persisting order", errors.New("dial tcp 10.0.0.3:3306"))
	Error(rec, httptest.NewRequest(http.MethodPost, "/order", nil), zap.NewNop(), err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
	assert.Contains(t, rec.Body.String(), "PERSISTENCE_FAILURE")
}

type sampleRequest struct {
	Name  string `json:"name" validate:"required"`
	Items []struct {
		Quantity int `json:"quantity" validate:"min=1,max=10000"`
	} `json:"items" validate:"required,min=1,dive"`
}

func TestDecode(t *testing.T) {
	var req sampleRequest
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"","items":[{"quantity":0}]}`))

	err := Decode(r, &req)
	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)

	fields := make([]string, 0, len(ve.Details))
	for _, d := range ve.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"name", "items[0].quantity"}, fields)
}

func TestDecode_InvalidJSON(t *testing.T) {
	var req sampleRequest
	err := Decode(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)), &req)

	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "body", ve.Details[0].Field)
}

func TestError_ValidationShape(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{Field: "quantity", Message: "bad"})
	Error(rec, httptest.NewRequest(http.MethodPost, "/", nil), zap.NewNop(), err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Error)
	assert.Len(t, body.Details, 1)
}
