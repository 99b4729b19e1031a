package cart

import (
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tradeflow/internal/cart/controller"
	"tradeflow/internal/cart/service"
	"tradeflow/internal/cart/store"
	"tradeflow/internal/config"
)

// StockLedger is the part of the ledger the cart and its reaper use.
type StockLedger interface {
	service.Ledger
	service.HoldSource
}

type Module struct {
	Service    *service.CartService
	Reaper     *service.Reaper
	Controller *controller.CartController
}

func NewModule(
	client *goredis.Client,
	cfg config.CartConfig,
	ledger StockLedger,
	catalog service.CatalogReader,
	orders service.OrderCreator,
	logger *zap.Logger,
) *Module {
	logger = logger.Named("cart")
	svc := service.NewCartService(store.NewRedisStore(client, cfg.HoldTTL), ledger, catalog, orders, cfg.HoldTTL, logger)
	return &Module{
		Service:    svc,
		Reaper:     service.NewReaper(ledger, cfg.HoldTTL, cfg.ReapInterval, cfg.ReapBatchSize, logger.Named("reaper")),
		Controller: controller.NewCartController(svc, logger),
	}
}
