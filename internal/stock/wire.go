package stock

import (
	"database/sql"

	"go.uber.org/zap"

	"tradeflow/internal/config"
	"tradeflow/internal/stock/repository"
	"tradeflow/internal/stock/service"
)

func NewModule(db *sql.DB, cfg *config.Config, logger *zap.Logger) *service.LedgerService {
	repo := repository.NewMySQLLedgerRepository(db, cfg.Stock.TxTimeout)
	return service.NewLedgerService(repo, logger.Named("stock"), cfg.Stock.MaxRetryAttempts, cfg.Stock.RetryBackoff)
}
