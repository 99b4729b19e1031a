package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/domain"
	apperrors "tradeflow/internal/errors"
	"tradeflow/internal/testutil"
)

// Unit Tests

func TestNewMySQLPaymentRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLPaymentRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

// Integration Tests

func samplePayment(ref string, distributorID int) *domain.PaymentRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.PaymentRecord{
		UserID:        "r-1",
		DistributorID: distributorID,
		OrderID:       42,
		Amount:        decimal.RequireFromString("276.00"),
		PaymentMethod: domain.DefaultPaymentMethod,
		Status:        domain.PaymentPending,
		ProviderRef:   ref,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPaymentRepository_InsertAndFind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	repo := NewMySQLPaymentRepository(db)

	p := samplePayment("pidx-1", 7)
	require.NoError(t, repo.Insert(ctx, p))
	require.NotZero(t, p.ID)

	found, err := repo.FindByProviderRef(ctx, "pidx-1")
	require.NoError(t, err)
	assert.Equal(t, uint(42), found.OrderID)
	assert.Equal(t, "276.00", found.Amount.StringFixed(2))
	assert.Equal(t, domain.PaymentPending, found.Status)

	_, err = repo.FindByProviderRef(ctx, "missing")
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestPaymentRepository_DuplicateReference(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	repo := NewMySQLPaymentRepository(db)

	require.NoError(t, repo.Insert(ctx, samplePayment("pidx-dup", 7)))
	err := repo.Insert(ctx, samplePayment("pidx-dup", 7))

	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
}

func TestPaymentRepository_UpdateStatusIsConditional(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	repo := NewMySQLPaymentRepository(db)
	require.NoError(t, repo.Insert(ctx, samplePayment("pidx-2", 7)))

	require.NoError(t, repo.UpdateStatus(ctx, "pidx-2", domain.PaymentPending, domain.PaymentPaid))

	err := repo.UpdateStatus(ctx, "pidx-2", domain.PaymentPending, domain.PaymentFailed)
	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)

	found, err := repo.FindByProviderRef(ctx, "pidx-2")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, found.Status)
}

func TestPaymentRepository_ListByDistributor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	ctx := context.Background()
	repo := NewMySQLPaymentRepository(db)
	require.NoError(t, repo.Insert(ctx, samplePayment("a", 7)))
	require.NoError(t, repo.Insert(ctx, samplePayment("b", 7)))
	require.NoError(t, repo.Insert(ctx, samplePayment("c", 8)))

	payments, err := repo.ListByDistributor(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	payments, err = repo.ListByDistributor(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, payments)
}
