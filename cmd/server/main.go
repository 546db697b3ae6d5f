package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"branch-pos/internal/ai"
	"branch-pos/internal/auth"
	"branch-pos/internal/config"
	"branch-pos/internal/database"
	"branch-pos/internal/handlers"
	"branch-pos/internal/inventory"
	"branch-pos/internal/models"
	"branch-pos/internal/sales"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal("Logger setup failed: ", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.LogFormat != "console" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Database ---
	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	if err := database.SeedOwner(db, cfg.SeedOwnerEmail, cfg.SeedOwnerPassword, logger); err != nil {
		logger.Fatal("seeding owner failed", zap.Error(err))
	}

	// --- Services ---
	// The ledger logs low stock itself.
	ledger := inventory.NewLedger(logger)

	salesService := sales.NewService(db, ledger, sales.Config{
		TaxRate:             decimal.NewFromFloat(cfg.TaxRate),
		DefaultDiscountRate: decimal.NewFromFloat(cfg.DefaultDiscountRate),
		DefaultStatus:       models.SaleStatus(cfg.DefaultSaleStatus),
	}, logger)

	var agent *ai.Agent
	if cfg.AssistantEnabled() {
		agent = ai.NewAgent(db, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	} else {
		logger.Info("assistant disabled, GEMINI_API_KEY is not set")
	}

	h := handlers.New(handlers.Deps{
		DB:        db,
		Config:    cfg,
		Tokens:    auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		Inventory: inventory.NewService(db, ledger, logger),
		Sales:     salesService,
		Agent:     agent,
		Logger:    logger,
	})
	r := handlers.NewRouter(h)

	// --- DEPLOYMENT: Serve the frontend build when it is present ---
	if _, err := os.Stat("./web/index.html"); err == nil {
		r.Static("/assets", "./web/assets")
		r.StaticFile("/vite.svg", "./web/vite.svg")

		// SPA Catch-All: If the user refreshes on "/dashboard",
		// serve index.html so the client can handle the routing.
		r.NoRoute(func(c *gin.Context) {
			c.File("./web/index.html")
		})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("base_url", cfg.BaseURL), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
