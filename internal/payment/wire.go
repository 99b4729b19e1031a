package payment

import (
	"database/sql"

	"go.uber.org/zap"

	"tradeflow/internal/payment/controller"
	"tradeflow/internal/payment/repository"
	"tradeflow/internal/payment/service"
)

type Module struct {
	Service    *service.PaymentService
	Controller *controller.PaymentController
}

func NewModule(db *sql.DB, orders service.OrderReader, logger *zap.Logger) *Module {
	logger = logger.Named("payment")
	svc := service.NewPaymentService(repository.NewMySQLPaymentRepository(db), orders, logger)
	return &Module{
		Service:    svc,
		Controller: controller.NewPaymentController(svc, logger),
	}
}
