package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables lists every table in dependency order: referenced tables first.
var Tables = []string{"Product", "StockReservation", "Orders", "OrderItems", "Payments"}

var schema = []struct {
	name  string
	query string
}{
	{"Product", `
	CREATE TABLE IF NOT EXISTS Product (
		id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		basePrice DECIMAL(12,2) NOT NULL,
		discountPercent DECIMAL(5,2) NOT NULL DEFAULT 0,
		discountedPrice DECIMAL(12,2) NOT NULL,
		quantity INT NOT NULL DEFAULT 0,
		holdQuantity INT NOT NULL DEFAULT 0,
		category VARCHAR(100),
		images JSON NOT NULL,
		ownerId INT NOT NULL,
		isDeleted TINYINT(1) NOT NULL DEFAULT 0,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_product_name (name),
		INDEX idx_owner (ownerId),
		INDEX idx_deleted (isDeleted),
		CONSTRAINT chk_quantity CHECK (quantity >= 0),
		CONSTRAINT chk_hold_quantity CHECK (holdQuantity >= 0)
	)`},
	{"StockReservation", `
	CREATE TABLE IF NOT EXISTS StockReservation (
		token CHAR(36) NOT NULL PRIMARY KEY,
		productId INT NOT NULL,
		quantity INT NOT NULL,
		status VARCHAR(20) NOT NULL,
		createdAt DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
		updatedAt DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
		INDEX idx_status_created (status, createdAt),
		INDEX idx_product (productId)
	)`},
	{"Orders", `
	CREATE TABLE IF NOT EXISTS Orders (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		userId VARCHAR(64) NOT NULL,
		address VARCHAR(255) NOT NULL,
		city VARCHAR(100) NOT NULL,
		postalCode VARCHAR(20) NOT NULL,
		country VARCHAR(100) NOT NULL,
		paymentMethod VARCHAR(50) NOT NULL,
		itemsPrice DECIMAL(12,2) NOT NULL,
		taxPrice DECIMAL(12,2) NOT NULL,
		shippingPrice DECIMAL(12,2) NOT NULL,
		totalPrice DECIMAL(12,2) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_user (userId)
	)`},
	{"OrderItems", `
	CREATE TABLE IF NOT EXISTS OrderItems (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		orderId INT UNSIGNED NOT NULL,
		productId INT NOT NULL,
		ownerId INT NOT NULL,
		name VARCHAR(255) NOT NULL,
		quantity INT NOT NULL,
		unitPrice DECIMAL(12,2) NOT NULL,
		reservationToken CHAR(36) NOT NULL,
		FOREIGN KEY (orderId) REFERENCES Orders(id) ON DELETE CASCADE,
		INDEX idx_order (orderId),
		INDEX idx_product (productId),
		INDEX idx_owner (ownerId)
	)`},
	{"Payments", `
	CREATE TABLE IF NOT EXISTS Payments (
		id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		userId VARCHAR(64) NOT NULL,
		distributorId INT NOT NULL,
		orderId INT UNSIGNED NOT NULL,
		amount DECIMAL(12,2) NOT NULL,
		paymentMethod VARCHAR(50) NOT NULL DEFAULT 'Khalti',
		status VARCHAR(20) NOT NULL DEFAULT 'Pending',
		providerRef VARCHAR(128) NOT NULL,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_provider_ref (providerRef),
		INDEX idx_distributor (distributorId),
		INDEX idx_order (orderId)
	)`},
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, tbl := range schema {
		if _, err := db.ExecContext(ctx, tbl.query); err != nil {
			return fmt.Errorf("creating table %s: %w", tbl.name, err)
		}
	}
	return nil
}
