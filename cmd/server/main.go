package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradeflow/internal/auth"
	"tradeflow/internal/cart"
	"tradeflow/internal/config"
	"tradeflow/internal/infrastructure/kafka"
	"tradeflow/internal/infrastructure/logger"
	"tradeflow/internal/infrastructure/mysql"
	"tradeflow/internal/infrastructure/redis"
	"tradeflow/internal/order"
	"tradeflow/internal/order/events"
	"tradeflow/internal/order/usecase"
	"tradeflow/internal/payment"
	"tradeflow/internal/product"
	"tradeflow/internal/server"
	"tradeflow/internal/stock"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "internal/config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, "tradeflow")
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	if cfg.Database.AutoMigrate {
		if err := mysql.EnsureSchema(ctx, db); err != nil {
			zapLogger.Fatal("creating schema", zap.Error(err))
		}
		zapLogger.Info("schema ensured")
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("connecting to redis", zap.Error(err))
	}
	defer redisClient.Close()

	var publisher usecase.EventPublisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = events.NewKafkaPublisher(producer, zapLogger.Named("events"))
		zapLogger.Info("order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	ledger := stock.NewModule(db, cfg, zapLogger)
	productModule := product.NewModule(db, ledger, zapLogger)
	orderModule, err := order.NewModule(db, cfg, productModule.Catalog, ledger, publisher, zapLogger)
	if err != nil {
		zapLogger.Fatal("building order module", zap.Error(err))
	}
	cartModule := cart.NewModule(redisClient, cfg.Cart, ledger, productModule.Catalog, orderModule.UseCase, zapLogger)
	paymentModule := payment.NewModule(db, orderModule.UseCase, zapLogger)

	router := server.NewRouter(server.Controllers{
		Product: productModule.Controller,
		Order:   orderModule.Controller,
		Cart:    cartModule.Controller,
		Payment: paymentModule.Controller,
	}, auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, zapLogger.Named("auth")), cfg.Server.WriteTimeout, zapLogger)

	srv := server.New(cfg.Server, router, zapLogger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error { return cartModule.Reaper.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Fatal("server stopped with error", zap.Error(err))
	}
	zapLogger.Info("server stopped gracefully")
}
