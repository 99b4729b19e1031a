package order

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"tradeflow/internal/config"
	"tradeflow/internal/order/controller"
	"tradeflow/internal/order/pricing"
	orderrepo "tradeflow/internal/order/repository"
	"tradeflow/internal/order/usecase"
)

type Module struct {
	UseCase    *usecase.OrderUseCase
	Controller *controller.OrderController
}

func NewModule(
	db *sql.DB,
	cfg *config.Config,
	catalog usecase.CatalogReader,
	ledger usecase.StockLedger,
	events usecase.EventPublisher,
	logger *zap.Logger,
) (*Module, error) {
	logger = logger.Named("order")

	policy, err := pricing.NewFlatRate(cfg.Order)
	if err != nil {
		return nil, fmt.Errorf("building pricing policy: %w", err)
	}

	itemRepo := orderrepo.NewMySQLOrderItemRepository(db)
	orderRepo := orderrepo.NewMySQLOrderRepository(db, itemRepo)

	uc := usecase.NewOrderUseCase(catalog, ledger, orderRepo, policy, events, logger, cfg.Order.MaxItems)
	return &Module{
		UseCase:    uc,
		Controller: controller.NewOrderController(uc, logger),
	}, nil
}
