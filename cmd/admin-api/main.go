package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/itsuki2003/todaibansou-admin/internal/app"
	"github.com/itsuki2003/todaibansou-admin/internal/config"
	"github.com/itsuki2003/todaibansou-admin/internal/notify"
	"github.com/itsuki2003/todaibansou-admin/internal/server"
	"github.com/itsuki2003/todaibansou-admin/internal/service"
	"github.com/itsuki2003/todaibansou-admin/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	st := postgres.New(pool)
	broker := notify.NewBroker()

	listener := app.NewListener(pool, broker, logger)
	listener.Start(ctx)
	defer listener.Stop()

	checker := service.NewConflictChecker(st)
	lifecycle := service.NewSlotLifecycleManager(st, checker, broker, logger)
	queries := service.NewScheduleQueryService(st, broker, logger)

	handlers := server.NewHandlers(lifecycle, queries, checker, logger)
	httpServer := server.New(handlers, logger)

	go func() {
		logger.Info("Starting admin API",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("environment", cfg.Environment),
		)
		if err := httpServer.Listen(cfg.HTTPAddr); err != nil {
			logger.Fatal("HTTP server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	if err := httpServer.Shutdown(); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}
