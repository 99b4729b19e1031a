package product

import (
	"database/sql"

	"go.uber.org/zap"

	"tradeflow/internal/product/controller"
	"tradeflow/internal/product/repository"
	"tradeflow/internal/product/service"
)

type Module struct {
	Catalog    *service.CatalogService
	Discounts  *service.DiscountService
	Controller *controller.ProductController
}

// NewModule wires the catalog. The stock ledger is passed in because product
// stock updates go through it.
func NewModule(db *sql.DB, ledger controller.StockLedger, logger *zap.Logger) *Module {
	logger = logger.Named("product")
	repo := repository.NewMySQLRepository(db)
	catalog := service.NewCatalogService(repo, logger)
	discounts := service.NewDiscountService(repo, logger)
	return &Module{
		Catalog:    catalog,
		Discounts:  discounts,
		Controller: controller.NewProductController(catalog, discounts, ledger, logger),
	}
}
