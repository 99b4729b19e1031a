package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tradeflow/internal/domain"
)

type MySQLOrderItemRepository struct {
	db *sql.DB
}

func NewMySQLOrderItemRepository(db *sql.DB) *MySQLOrderItemRepository {
	return &MySQLOrderItemRepository{db: db}
}

func (r *MySQLOrderItemRepository) Insert(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (uint, error) {
	query := `
		INSERT INTO OrderItems (orderId, productId, ownerId, name, quantity, unitPrice, reservationToken)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query,
		item.OrderID, item.ProductID, item.OwnerID, item.Name, item.Quantity, item.UnitPrice, item.ReservationToken)
	if err != nil {
		return 0, fmt.Errorf("inserting order item: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

// FindByOrderIDs returns the items of every given order, grouped by order id.
func (r *MySQLOrderItemRepository) FindByOrderIDs(ctx context.Context, orderIDs []uint) (map[uint][]domain.OrderItem, error) {
	if len(orderIDs) == 0 {
		return map[uint][]domain.OrderItem{}, nil
	}

	placeholders := make([]string, len(orderIDs))
	args := make([]interface{}, len(orderIDs))
	for i, id := range orderIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, orderId, productId, ownerId, name, quantity, unitPrice, reservationToken
		FROM OrderItems
		WHERE orderId IN (%s)
		ORDER BY orderId, productId`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uint][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.OwnerID, &item.Name,
			&item.Quantity, &item.UnitPrice, &item.ReservationToken); err != nil {
			return nil, fmt.Errorf("scanning order item row: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order item rows: %w", err)
	}

	return items, nil
}
