package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradeflow/internal/domain"
	"tradeflow/internal/infrastructure/mysql"
)

// MySQLLedgerRepository keeps stock counters on the Product row and the
// reservation lifecycle in StockReservation. Each operation runs in a short
// transaction whose stock change is one conditional UPDATE, so concurrent
// writers on the same product serialize on the InnoDB row lock instead of
// racing a read-then-write.
type MySQLLedgerRepository struct {
	db        *sql.DB
	txTimeout time.Duration
}

func NewMySQLLedgerRepository(db *sql.DB, txTimeout time.Duration) *MySQLLedgerRepository {
	return &MySQLLedgerRepository{db: db, txTimeout: txTimeout}
}

func (r *MySQLLedgerRepository) inTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if r.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.txTimeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(fmt.Errorf("beginning transaction: %w", err))
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// classify marks retryable InnoDB lock errors as write conflicts.
func classify(err error) error {
	if mysql.IsDeadlock(err) {
		return fmt.Errorf("%w: %v", domain.ErrWriteConflict, err)
	}
	return err
}

func (r *MySQLLedgerRepository) Hold(ctx context.Context, res domain.Reservation) error {
	return r.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE Product
			SET holdQuantity = holdQuantity + ?
			WHERE id = ? AND isDeleted = 0 AND quantity - holdQuantity >= ?`,
			res.Quantity, res.ProductID, res.Quantity,
		)
		if err != nil {
			return fmt.Errorf("holding stock: %w", err)
		}
		if err := expectOneRow(result); err != nil {
			return r.shortfall(ctx, tx, res.ProductID, res.Quantity, true)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO StockReservation (token, productId, quantity, status, createdAt, updatedAt)
			VALUES (?, ?, ?, ?, ?, ?)`,
			res.Token, res.ProductID, res.Quantity, res.Status, res.CreatedAt, res.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting reservation: %w", err)
		}
		return nil
	})
}

func (r *MySQLLedgerRepository) Release(ctx context.Context, token string) (bool, error) {
	released := false
	err := r.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := lockReservation(ctx, tx, token)
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationHeld {
			return nil
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE Product SET holdQuantity = holdQuantity - ?
			WHERE id = ? AND holdQuantity >= ?`,
			res.Quantity, res.ProductID, res.Quantity,
		)
		if err != nil {
			return fmt.Errorf("releasing hold: %w", err)
		}
		if err := expectOneRow(result); err != nil {
			return fmt.Errorf("releasing hold of %s: hold quantity below reserved amount", token)
		}

		if err := setReservationStatus(ctx, tx, token, domain.ReservationReleased); err != nil {
			return err
		}
		released = true
		return nil
	})
	return released, err
}

func (r *MySQLLedgerRepository) Commit(ctx context.Context, token string) (*domain.Reservation, error) {
	var committed *domain.Reservation
	err := r.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := lockReservation(ctx, tx, token)
		if err != nil {
			return err
		}
		if res.Status != domain.ReservationHeld {
			return domain.ErrReservationNotHeld
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE Product
			SET quantity = quantity - ?, holdQuantity = holdQuantity - ?
			WHERE id = ? AND quantity >= ? AND holdQuantity >= ?`,
			res.Quantity, res.Quantity, res.ProductID, res.Quantity, res.Quantity,
		)
		if err != nil {
			return fmt.Errorf("committing stock: %w", err)
		}
		if err := expectOneRow(result); err != nil {
			return r.shortfall(ctx, tx, res.ProductID, res.Quantity, false)
		}

		if err := setReservationStatus(ctx, tx, token, domain.ReservationCommitted); err != nil {
			return err
		}
		res.Status = domain.ReservationCommitted
		committed = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (r *MySQLLedgerRepository) Restore(ctx context.Context, token string) (*domain.Reservation, error) {
	var restored *domain.Reservation
	err := r.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := lockReservation(ctx, tx, token)
		if err != nil {
			return err
		}
		switch res.Status {
		case domain.ReservationRestored:
			restored = res
			return nil
		case domain.ReservationCommitted:
		default:
			return domain.ErrReservationNotHeld
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE Product SET quantity = quantity + ? WHERE id = ?`,
			res.Quantity, res.ProductID,
		); err != nil {
			return fmt.Errorf("restoring stock: %w", err)
		}

		if err := setReservationStatus(ctx, tx, token, domain.ReservationRestored); err != nil {
			return err
		}
		res.Status = domain.ReservationRestored
		restored = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

func (r *MySQLLedgerRepository) SetQuantity(ctx context.Context, productID int, quantity int) error {
	return r.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE Product SET quantity = ? WHERE id = ? AND isDeleted = 0`,
			quantity, productID,
		)
		if err != nil {
			return fmt.Errorf("setting quantity: %w", err)
		}
		// MySQL reports zero affected rows when the value is unchanged.
		if expectOneRow(result) == nil {
			return nil
		}

		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM Product WHERE id = ? AND isDeleted = 0`, productID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrProductMissing
		}
		if err != nil {
			return fmt.Errorf("checking product: %w", err)
		}
		return nil
	})
}

func (r *MySQLLedgerRepository) FindReservation(ctx context.Context, token string) (*domain.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT token, productId, quantity, status, createdAt, updatedAt
		FROM StockReservation
		WHERE token = ?`, token)

	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying reservation: %w", err)
	}
	return res, nil
}

func (r *MySQLLedgerRepository) ListHeldBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT token, productId, quantity, status, createdAt, updatedAt
		FROM StockReservation
		WHERE status = ? AND createdAt < ?
		ORDER BY createdAt
		LIMIT ?`,
		domain.ReservationHeld, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying held reservations: %w", err)
	}
	defer rows.Close()

	var held []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reservation row: %w", err)
		}
		held = append(held, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reservation rows: %w", err)
	}
	return held, nil
}

// shortfall explains why a conditional stock update matched no row.
func (r *MySQLLedgerRepository) shortfall(ctx context.Context, tx *sql.Tx, productID, requested int, skipDeleted bool) error {
	query := `SELECT quantity, holdQuantity FROM Product WHERE id = ?`
	if skipDeleted {
		query += ` AND isDeleted = 0`
	}

	var quantity, hold int
	err := tx.QueryRowContext(ctx, query, productID).Scan(&quantity, &hold)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProductMissing
	}
	if err != nil {
		return fmt.Errorf("reading stock of product %d: %w", productID, err)
	}

	available := quantity - hold
	if !skipDeleted {
		available = quantity
	}
	return &domain.ShortfallError{ProductID: productID, Requested: requested, Available: max(available, 0)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var res domain.Reservation
	if err := row.Scan(&res.Token, &res.ProductID, &res.Quantity, &res.Status, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, err
	}
	return &res, nil
}

func lockReservation(ctx context.Context, tx *sql.Tx, token string) (*domain.Reservation, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT token, productId, quantity, status, createdAt, updatedAt
		FROM StockReservation
		WHERE token = ?
		FOR UPDATE`, token)

	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking reservation: %w", err)
	}
	return res, nil
}

func setReservationStatus(ctx context.Context, tx *sql.Tx, token string, status domain.ReservationStatus) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE StockReservation SET status = ? WHERE token = ?`, status, token,
	); err != nil {
		return fmt.Errorf("updating reservation status: %w", err)
	}
	return nil
}

var errNoRowAffected = errors.New("no row affected")

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return errNoRowAffected
	}
	return nil
}
