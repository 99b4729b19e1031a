package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradeflow/internal/auth"
	"tradeflow/internal/domain"
	"tradeflow/internal/dto"
	apperrors "tradeflow/internal/errors"
	"tradeflow/internal/payment/service"
)

type mockPayments struct {
	InitiateFunc          func(ctx context.Context, userID string, in service.InitiateInput) (*domain.PaymentRecord, error)
	RecordOutcomeFunc     func(ctx context.Context, ref string, outcome domain.PaymentStatus) (*domain.PaymentRecord, error)
	ListByDistributorFunc func(ctx context.Context, distributorID int) ([]domain.PaymentRecord, error)
}

func (m *mockPayments) Initiate(ctx context.Context, userID string, in service.InitiateInput) (*domain.PaymentRecord, error) {
	return m.InitiateFunc(ctx, userID, in)
}

func (m *mockPayments) RecordOutcome(ctx context.Context, ref string, outcome domain.PaymentStatus) (*domain.PaymentRecord, error) {
	return m.RecordOutcomeFunc(ctx, ref, outcome)
}

func (m *mockPayments) ListByDistributor(ctx context.Context, distributorID int) ([]domain.PaymentRecord, error) {
	return m.ListByDistributorFunc(ctx, distributorID)
}

var (
	retailer    = auth.Principal{UserID: "r-1", Role: auth.RoleRetailer}
	distributor = auth.Principal{UserID: "d-1", Role: auth.RoleDistributor, DistributorID: 7}
	admin       = auth.Principal{UserID: "a-1", Role: auth.RoleAdmin}
)

func serve(t *testing.T, method, pattern, target, body string, p auth.Principal, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Method(method, pattern, handler)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestInitiate(t *testing.T) {
	payments := &mockPayments{
		InitiateFunc: func(ctx context.Context, userID string, in service.InitiateInput) (*domain.PaymentRecord, error) {
			assert.Equal(t, "r-1", userID)
			assert.Equal(t, uint(42), in.OrderID)
			return &domain.PaymentRecord{ID: 1, OrderID: 42, Amount: decimal.NewFromInt(276), Status: domain.PaymentPending, ProviderRef: in.ProviderRef}, nil
		},
	}
	c := NewPaymentController(payments, zap.NewNop())

	rec := serve(t, http.MethodPost, "/payment", "/payment", `{"orderId":42,"distributorId":7,"providerRef":"pidx-1"}`, retailer, c.Initiate)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.PaymentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "276.00", resp.Amount)
	assert.Equal(t, "Pending", resp.Status)
}

func TestInitiate_Validation(t *testing.T) {
	c := NewPaymentController(&mockPayments{}, zap.NewNop())

	rec := serve(t, http.MethodPost, "/payment", "/payment", `{"orderId":0,"providerRef":""}`, retailer, c.Initiate)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordOutcome_Conflict(t *testing.T) {
	payments := &mockPayments{
		RecordOutcomeFunc: func(ctx context.Context, ref string, outcome domain.PaymentStatus) (*domain.PaymentRecord, error) {
			assert.Equal(t, "pidx-1", ref)
			assert.Equal(t, domain.PaymentFailed, outcome)
			return nil, apperrors.NewConflictError("payment pidx-1 already settled as Paid")
		},
	}
	c := NewPaymentController(payments, zap.NewNop())

	rec := serve(t, http.MethodPatch, "/payment/{providerRef}", "/payment/pidx-1", `{"status":"Failed"}`, retailer, c.RecordOutcome)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListForDistributor(t *testing.T) {
	var asked []int
	payments := &mockPayments{
		ListByDistributorFunc: func(ctx context.Context, distributorID int) ([]domain.PaymentRecord, error) {
			asked = append(asked, distributorID)
			return []domain.PaymentRecord{{ID: 1, DistributorID: distributorID}}, nil
		},
	}
	c := NewPaymentController(payments, zap.NewNop())

	rec := serve(t, http.MethodGet, "/payment/distributor", "/payment/distributor", "", distributor, c.ListForDistributor)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, http.MethodGet, "/payment/distributor", "/payment/distributor?distributorId=9", "", admin, c.ListForDistributor)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, http.MethodGet, "/payment/distributor", "/payment/distributor", "", admin, c.ListForDistributor)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, []int{7, 9}, asked)
}
