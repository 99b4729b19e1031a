package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradeflow/internal/domain"
	apperrors "tradeflow/internal/errors"
	"tradeflow/internal/infrastructure/mysql"
)

const paymentColumns = `
	id, userId, distributorId, orderId, amount, paymentMethod, status, providerRef, createdAt, updatedAt`

type MySQLPaymentRepository struct {
	db *sql.DB
}

func NewMySQLPaymentRepository(db *sql.DB) *MySQLPaymentRepository {
	return &MySQLPaymentRepository{db: db}
}

// Insert stores a new payment record and sets its id. A reused provider
// reference is a Conflict.
func (r *MySQLPaymentRepository) Insert(ctx context.Context, p *domain.PaymentRecord) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO Payments (userId, distributorId, orderId, amount, paymentMethod, status, providerRef, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.DistributorID, p.OrderID, p.Amount, p.PaymentMethod, p.Status, p.ProviderRef,
		p.CreatedAt, p.UpdatedAt,
	)
	if mysql.IsDuplicateEntry(err) {
		return apperrors.NewConflictError(fmt.Sprintf("payment reference %s already recorded", p.ProviderRef))
	}
	if err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	p.ID = uint(id)
	return nil
}

func (r *MySQLPaymentRepository) FindByProviderRef(ctx context.Context, ref string) (*domain.PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+paymentColumns+` FROM Payments WHERE providerRef = ?`, ref)

	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment %s not found", ref))
	}
	if err != nil {
		return nil, fmt.Errorf("querying payment by reference: %w", err)
	}
	return p, nil
}

func (r *MySQLPaymentRepository) ListByDistributor(ctx context.Context, distributorID int) ([]domain.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+paymentColumns+` FROM Payments WHERE distributorId = ? ORDER BY createdAt DESC, id DESC`, distributorID)
	if err != nil {
		return nil, fmt.Errorf("querying payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning payment row: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating payment rows: %w", err)
	}
	return payments, nil
}

// UpdateStatus moves a payment from one status to another. It fails with a
// Conflict error when the stored status is no longer from.
func (r *MySQLPaymentRepository) UpdateStatus(ctx context.Context, ref string, from, to domain.PaymentStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE Payments SET status = ?, updatedAt = ? WHERE providerRef = ? AND status = ?`,
		to, time.Now().UTC(), ref, from)
	if err != nil {
		return fmt.Errorf("updating payment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("payment %s is no longer %s", ref, from))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*domain.PaymentRecord, error) {
	var p domain.PaymentRecord
	err := row.Scan(
		&p.ID, &p.UserID, &p.DistributorID, &p.OrderID, &p.Amount,
		&p.PaymentMethod, &p.Status, &p.ProviderRef, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
