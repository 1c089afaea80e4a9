package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zaymart/zaymart-backend/api/routes"
	"github.com/zaymart/zaymart-backend/internal/ledger"
	"github.com/zaymart/zaymart-backend/internal/orders"
	"github.com/zaymart/zaymart-backend/internal/payouts"
	"github.com/zaymart/zaymart-backend/internal/settlement"
	"github.com/zaymart/zaymart-backend/internal/wallet"
	"github.com/zaymart/zaymart-backend/pkg/config"
	"github.com/zaymart/zaymart-backend/pkg/db"
	"github.com/zaymart/zaymart-backend/pkg/logger"
	"github.com/zaymart/zaymart-backend/pkg/metrics"
	"github.com/zaymart/zaymart-backend/pkg/migrate"
	"github.com/zaymart/zaymart-backend/pkg/ordercode"
	"github.com/zaymart/zaymart-backend/pkg/outbox"
	"github.com/zaymart/zaymart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	walletSvc, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), ledger.NewRepository(dbClient.DB()), logg, settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersRepo := orders.NewRepository(dbClient.DB())

	allocator, err := ordercode.NewAllocator(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create order code allocator", err)
		os.Exit(1)
	}
	ordersSvc, err := orders.NewService(dbClient, ordersRepo, allocator, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	settlementSvc, err := settlement.NewService(cfg.Settlement, dbClient, ledgerSvc, walletSvc, outboxSvc, ordersRepo, logg, settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}
	payoutsSvc, err := payouts.NewService(dbClient, ledgerSvc, walletSvc, outboxSvc, logg, settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, redisClient, ordersSvc, settlementSvc, walletSvc, ledgerSvc, payoutsSvc),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
