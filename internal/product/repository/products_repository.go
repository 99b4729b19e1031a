package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tradeflow/internal/domain"
	apperrors "tradeflow/internal/errors"
	"tradeflow/internal/infrastructure/mysql"
)

const productColumns = `
	id, name, description, basePrice, discountPercent, discountedPrice,
	quantity, holdQuantity, category, images, ownerId, isDeleted,
	createdAt, updatedAt`

type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

// FindByID returns domain.ErrProductMissing when the product does not exist
// or is soft deleted.
func (r *MySQLRepository) FindByID(ctx context.Context, id int) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+productColumns+` FROM Product WHERE id = ? AND isDeleted = 0`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductMissing
	}
	if err != nil {
		return nil, fmt.Errorf("querying product %d: %w", id, err)
	}
	return p, nil
}

// FindByIDs returns the live products among ids, ordered by id. Missing ids
// are simply absent from the result.
func (r *MySQLRepository) FindByIDs(ctx context.Context, ids []int) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`SELECT`+productColumns+`
		FROM Product
		WHERE id IN (%s)
		  AND isDeleted = 0
		ORDER BY id`,
		strings.Join(placeholders, ", "),
	)
	return r.query(ctx, query, args...)
}

func (r *MySQLRepository) ListByOwner(ctx context.Context, ownerID int) ([]domain.Product, error) {
	return r.query(ctx,
		`SELECT`+productColumns+` FROM Product WHERE ownerId = ? AND isDeleted = 0 ORDER BY id`, ownerID)
}

// ListAll lists live products, optionally restricted to one category.
func (r *MySQLRepository) ListAll(ctx context.Context, category string) ([]domain.Product, error) {
	if category == "" {
		return r.query(ctx, `SELECT`+productColumns+` FROM Product WHERE isDeleted = 0 ORDER BY id`)
	}
	return r.query(ctx,
		`SELECT`+productColumns+` FROM Product WHERE category = ? AND isDeleted = 0 ORDER BY id`, category)
}

// NameExists checks every product, deleted ones included, because the unique
// index spans them all.
func (r *MySQLRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM Product WHERE name = ? LIMIT 1`, name).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking product name: %w", err)
	}
	return true, nil
}

// Insert stores p and sets its ID. A concurrent insert of the same name
// surfaces as a DuplicateName error through the unique index.
func (r *MySQLRepository) Insert(ctx context.Context, p *domain.Product) error {
	images, err := json.Marshal(nonNil(p.Images))
	if err != nil {
		return fmt.Errorf("encoding images: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO Product (name, description, basePrice, discountPercent, discountedPrice,
		                     quantity, holdQuantity, category, images, ownerId, isDeleted,
		                     createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, 0, ?, ?)`,
		p.Name, p.Description, p.BasePrice, p.DiscountPercent, p.DiscountedPrice,
		p.Quantity, p.Category, images, p.OwnerID, p.CreatedAt, p.UpdatedAt,
	)
	if mysql.IsDuplicateEntry(err) {
		return apperrors.NewDuplicateNameError(p.Name)
	}
	if err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting inserted product id: %w", err)
	}
	p.ID = int(id)
	return nil
}

// Update locks the product row, lets fn mutate the loaded product and writes
// back the catalog fields. Quantity and hold quantity are never written here.
func (r *MySQLRepository) Update(ctx context.Context, id int, fn func(p *domain.Product) error) (*domain.Product, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT`+productColumns+` FROM Product WHERE id = ? AND isDeleted = 0 FOR UPDATE`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductMissing
	}
	if err != nil {
		return nil, fmt.Errorf("locking product %d: %w", id, err)
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	images, err := json.Marshal(nonNil(p.Images))
	if err != nil {
		return nil, fmt.Errorf("encoding images: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE Product
		SET name = ?, description = ?, basePrice = ?, discountPercent = ?, discountedPrice = ?,
		    category = ?, images = ?, updatedAt = ?
		WHERE id = ?`,
		p.Name, p.Description, p.BasePrice, p.DiscountPercent, p.DiscountedPrice,
		p.Category, images, p.UpdatedAt, id,
	)
	if mysql.IsDuplicateEntry(err) {
		return nil, apperrors.NewDuplicateNameError(p.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("updating product %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return p, nil
}

func (r *MySQLRepository) SoftDelete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE Product SET isDeleted = 1 WHERE id = ? AND isDeleted = 0`, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrProductMissing
	}
	return nil
}

func (r *MySQLRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p           domain.Product
		description sql.NullString
		category    sql.NullString
		images      []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &description, &p.BasePrice, &p.DiscountPercent, &p.DiscountedPrice,
		&p.Quantity, &p.HoldQuantity, &category, &images, &p.OwnerID, &p.IsDeleted,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.Category = category.String
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("decoding images of product %d: %w", p.ID, err)
		}
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
