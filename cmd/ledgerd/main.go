package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"medledger/m/domain"
	"medledger/m/internal/app"
	"medledger/m/internal/config"
	"medledger/m/internal/database"
	"medledger/m/internal/logging"
	"medledger/m/internal/migrations"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("unable to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("ledger bootstrap failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		return err
	}

	ledger := app.New(cfg, db, logger)
	if err := ledger.Bootstrap(ctx); err != nil {
		return err
	}

	system := domain.Actor{Role: domain.RoleAdmin}
	dash, err := ledger.Dashboard(ctx, system)
	if err != nil {
		return err
	}
	logger.Info("ledger ready",
		zap.String("database", cfg.DatabaseDSN),
		zap.Int64("active_medicines", dash.ActiveMedicines),
		zap.Int64("low_stock", dash.LowStock),
		zap.Int64("expiring_soon", dash.ExpiringSoon),
		zap.Int64("sales_today", dash.SalesToday))
	return nil
}
