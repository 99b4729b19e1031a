package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradeflow/internal/domain"
	apperrors "tradeflow/internal/errors"
)

const orderColumns = `
	id, userId, address, city, postalCode, country, paymentMethod,
	itemsPrice, taxPrice, shippingPrice, totalPrice, status, createdAt, updatedAt`

type MySQLOrderRepository struct {
	db    *sql.DB
	items *MySQLOrderItemRepository
}

func NewMySQLOrderRepository(db *sql.DB, items *MySQLOrderItemRepository) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db, items: items}
}

// Save inserts the order and its items in one transaction and sets their ids.
func (r *MySQLOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO Orders (userId, address, city, postalCode, country, paymentMethod,
		                    itemsPrice, taxPrice, shippingPrice, totalPrice, status, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.UserID,
		order.ShippingAddress.Address, order.ShippingAddress.City,
		order.ShippingAddress.PostalCode, order.ShippingAddress.Country,
		order.PaymentMethod,
		order.ItemsPrice, order.TaxPrice, order.ShippingPrice, order.TotalPrice,
		order.Status, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	orderID := uint(id)

	for i := range order.Items {
		order.Items[i].OrderID = orderID
		itemID, err := r.items.Insert(ctx, tx, order.Items[i])
		if err != nil {
			return err
		}
		order.Items[i].ID = itemID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	order.ID = orderID
	return nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+orderColumns+` FROM Orders WHERE id = ?`, id)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	items, err := r.items.FindByOrderIDs(ctx, []uint{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]
	return order, nil
}

func (r *MySQLOrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+orderColumns+` FROM Orders WHERE userId = ? ORDER BY createdAt DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []domain.Order
		ids    []uint
	)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, *order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order rows: %w", err)
	}

	items, err := r.items.FindByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

// UpdateStatus moves an order from one status to another. It fails with a
// Conflict error when the stored status is no longer from.
func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, id uint, from, to domain.OrderStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE Orders SET status = ?, updatedAt = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("order %d is no longer %s", id, from))
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.UserID,
		&o.ShippingAddress.Address, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.PaymentMethod,
		&o.ItemsPrice, &o.TaxPrice, &o.ShippingPrice, &o.TotalPrice,
		&o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
