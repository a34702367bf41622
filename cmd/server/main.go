// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billing-service/config"
	"billing-service/internal/domain"
	"billing-service/internal/handler"
	"billing-service/internal/provider"
	"billing-service/internal/provider/interbank"
	"billing-service/internal/provider/mercadopago"
	"billing-service/internal/provider/pagarme"
	"billing-service/internal/repository"
	"billing-service/internal/router"
	"billing-service/internal/usecase"
	"billing-service/internal/webhook"
	"billing-service/pkg/client"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting billing service")

	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, relying on environment")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port))

	// Connect to database
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("connected to database",
		zap.String("database", cfg.Database.DBName))

	// Connect to redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	// Initialize repositories
	transactionRepo := repository.NewTransactionRepository(dbPool)
	subscriptionRepo := repository.NewSubscriptionRepository(dbPool)
	ledgerRepo := repository.NewLedgerRepository(dbPool)

	// Initialize providers
	tokenCache := provider.NewRedisTokenCache(rdb)
	interbankClient := interbank.NewClient(cfg.Interbank, tokenCache)
	mercadopagoClient := mercadopago.NewClient(cfg.MercadoPago)
	pagarmeClient := pagarme.NewClient(cfg.Pagarme)

	providers := map[domain.Provider]provider.Client{
		domain.ProviderBankPix:     interbankClient,
		domain.ProviderMercadoPago: mercadopagoClient,
		domain.ProviderPagarme:     pagarmeClient,
	}

	// Initialize clients
	referralClient := client.NewReferralClient(cfg.Referral, logger)
	notifierClient := client.NewNotifierClient(cfg.Notifier, logger)

	// Initialize usecases
	publisher := usecase.NewRedisEventPublisher(rdb)

	entitlementUC := usecase.NewEntitlementUsecase(
		ledgerRepo,
		subscriptionRepo,
		referralClient,
		notifierClient,
		publisher,
		cfg.Billing.PlanID,
		cfg.Billing.PeriodDays,
		cfg.Billing.BaseFee,
		logger,
	)

	chargeUC := usecase.NewChargeUsecase(
		transactionRepo,
		providers,
		referralClient,
		cfg.Billing.BaseFee,
		cfg.Billing.ChargeExpiry,
		logger,
	)

	verifier := webhook.NewVerifier(cfg.Interbank, cfg.MercadoPago, cfg.Pagarme)

	reconcileUC := usecase.NewReconcileUsecase(
		verifier,
		transactionRepo,
		entitlementUC,
		mercadopagoClient,
		logger,
	)

	// Initialize handlers
	paymentHandler := handler.NewPaymentHandler(chargeUC, logger)
	webhookHandler := handler.NewWebhookHandler(reconcileUC, logger)

	// Setup routes
	r := router.SetupRoutes(paymentHandler, webhookHandler, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background expiry sweeper
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()

	sweeper := usecase.NewSweeper(transactionRepo, subscriptionRepo, cfg.Billing.SweepInterval, logger)
	go sweeper.Run(sweeperCtx)

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("billing service started successfully",
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Env))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopSweeper()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
