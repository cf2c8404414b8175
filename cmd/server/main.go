package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lendfi/internal/cache"
	"lendfi/internal/config"
	"lendfi/internal/db"
	"lendfi/internal/handlers"
	"lendfi/internal/logger"
	"lendfi/internal/services"
	"lendfi/internal/store"
	"lendfi/internal/websocket"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	rdb, err := cache.Open(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	if rdb == nil {
		log.Warn("REDIS_ADDR not set, idempotency keys are ignored")
	} else {
		defer rdb.Close()
	}

	users := store.NewUserStore(database)
	loans := store.NewLoanStore(database)
	roscas := store.NewROSCAStore(database)
	transactions := store.NewTransactionStore(database)
	audit := store.NewAuditStore(database)
	stats := store.NewAdminStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	authService := services.NewAuthService(txRunner, users, services.AuthConfig{
		JWTSecret:   cfg.JWTSecret,
		TokenTTL:    cfg.TokenTTL,
		AdminSecret: cfg.AdminSecret,
	})
	loanService := services.NewLoanService(txRunner, loans, transactions, hub)
	roscaService := services.NewROSCAService(txRunner, roscas, transactions, hub, cfg.FrontendURL)
	transactionService := services.NewTransactionService(transactions)
	adminService := services.NewAdminService(txRunner, users, loans, transactions, audit, stats, hub)

	handler := handlers.New(cfg, log, users, authService, loanService, roscaService, transactionService, adminService, rdb, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("LendFi API listening", zap.String("addr", server.Addr), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
		os.Exit(1)
	}
}
