package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"blineit/investor-portal/investor-portal-backend/internal/auth"
	"blineit/investor-portal/investor-portal-backend/internal/compliance"
	"blineit/investor-portal/investor-portal-backend/internal/config"
	"blineit/investor-portal/investor-portal-backend/internal/gateway"
	"blineit/investor-portal/investor-portal-backend/internal/liquidity"
	"blineit/investor-portal/investor-portal-backend/internal/secondary"
	"blineit/investor-portal/investor-portal-backend/pkg/locking"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load .env then configuration
	_ = godotenv.Load()
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&compliance.ComplianceStateRow{},
		&liquidity.ProgramSettings{},
		&liquidity.LiquidityRequest{},
		&secondary.Listing{},
	); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Wire the engine: one lock registry shared by every per-offering mutation
	locks := locking.NewKeyed()
	liquidityRepo := liquidity.NewGormRepository(db)
	listingRepo := secondary.NewGormRepository(db)
	engine := liquidity.NewEngine(liquidityRepo, locks, logger)
	listings := secondary.NewManager(listingRepo, locks, logger)
	gw := gateway.NewGateway(compliance.NewGormProvider(db), engine, listings, logger)
	handler := gateway.NewHandler(gw, logger)

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	api.Use(auth.RequireAuth(cfg.Security.JWTSecret))
	{
		handler.RegisterRoutes(api)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
