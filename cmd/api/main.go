package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pix-transfer-gateway/config"
	amqpAdapter "pix-transfer-gateway/internal/adapter/amqp"
	httpHandler "pix-transfer-gateway/internal/adapter/http/handler"
	pgStorage "pix-transfer-gateway/internal/adapter/storage/postgres"
	redisStorage "pix-transfer-gateway/internal/adapter/storage/redis"
	"pix-transfer-gateway/internal/core/ports"
	"pix-transfer-gateway/internal/service"
	"pix-transfer-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting PIX Transfer Gateway")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)

	// Initialize Redis stores
	pinAttempts := redisStorage.NewPinAttemptStore(rdb)
	sessions := redisStorage.NewSessionStore(rdb)

	// Event publisher: no broker configured means events are logged and dropped.
	var events ports.EventPublisher
	if cfg.AMQP.URL != "" {
		pub, err := amqpAdapter.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, falling back to noop publisher")
			events = amqpAdapter.NewNoopPublisher(log)
		} else {
			events = pub
		}
	} else {
		events = amqpAdapter.NewNoopPublisher(log)
	}
	defer events.Close()

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	accountSvc := service.NewAccountService(accountRepo, ledgerRepo, hashSvc, tokenSvc, sessions, log)
	transferSvc := service.NewTransferService(
		accountRepo,
		ledgerRepo,
		hashSvc,
		pinAttempts,
		events,
		service.TransferPolicy{
			MinAmount:      cfg.Transfer.MinAmount,
			MaxAmount:      cfg.Transfer.MaxAmount,
			MaxKeyLength:   cfg.Transfer.MaxKeyLength,
			PinMaxAttempts: cfg.Transfer.PinMaxAttempts,
			PinLockoutTTL:  cfg.Transfer.PinLockoutTTL,
		},
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AccountSvc:     accountSvc,
		TransferSvc:    transferSvc,
		TokenSvc:       tokenSvc,
		Sessions:       sessions,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
