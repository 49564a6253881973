package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"blineit/investor-portal/investor-portal-backend/internal/config"
	"blineit/investor-portal/investor-portal-backend/internal/secondary"
	"blineit/investor-portal/investor-portal-backend/pkg/locking"
)

// The listing-expiry worker periodically sweeps active secondary
// listings whose expiry has passed. The sweep is idempotent, so an
// overlapping or repeated run is harmless.
func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	manager := secondary.NewManager(secondary.NewGormRepository(db), locking.NewKeyed(), logger)

	c := cron.New()
	_, err = c.AddFunc(cfg.Liquidity.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		count, err := manager.ExpireSweep(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("Listing expiry sweep failed", zap.Error(err))
			return
		}
		if count > 0 {
			logger.Info("Listing expiry sweep finished", zap.Int("expired", count))
		}
	})
	if err != nil {
		logger.Fatal("Invalid sweep schedule", zap.String("schedule", cfg.Liquidity.SweepSchedule), zap.Error(err))
	}

	c.Start()
	logger.Info("Listing expiry worker started", zap.String("schedule", cfg.Liquidity.SweepSchedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Stopping listing expiry worker...")
	<-c.Stop().Done()
	logger.Info("Listing expiry worker exiting")
}
