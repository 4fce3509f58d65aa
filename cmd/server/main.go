package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rongwang/kasciraya-server/internal/api"
	"github.com/rongwang/kasciraya-server/internal/config"
	"github.com/rongwang/kasciraya-server/internal/ingest"
	"github.com/rongwang/kasciraya-server/internal/repository"
	"github.com/rongwang/kasciraya-server/internal/service"
	"github.com/rongwang/kasciraya-server/internal/utils"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env for local development, the environment wins in production
	_ = godotenv.Load()

	// Load configuration
	cfg := config.LoadConfig()
	logger := utils.NewLogger(cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", utils.FieldError, err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped", utils.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create repository
	repo, err := repository.Open(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	logger.Info("Store ready", "driver", cfg.Database.Driver)

	if cfg.Database.SeedDemo {
		if err := seedDemo(ctx, repo, logger); err != nil {
			return err
		}
	}

	// Create service
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret,
		service.WithLogger(logger),
		service.WithTokenDuration(cfg.Auth.TokenTTL),
	)

	// Create API handler
	handler := api.NewHandler(svc, logger)
	adapter := ingest.NewAdapter(svc, repo, cfg.Ingest, logger)
	if cfg.Ingest.Enabled() {
		handler.EnableIngest(cfg.Ingest.APIKey, adapter)
		logger.Info("Messaging webhook enabled")
	}

	// Set up Gin router
	if utils.ParseLevel(cfg.Log.Level) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(logger))
	handler.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.AMQP.URL != "" {
		consumer, err := ingest.NewConsumer(cfg.AMQP, adapter, logger)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("failed to start amqp consumer: %w", err)
		}
		defer consumer.Close()

		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}

	return g.Wait()
}

// seedDemo loads the demo data set unless the store already holds users
func seedDemo(ctx context.Context, repo repository.Repository, logger *utils.Logger) error {
	result, err := repository.Seed(ctx, repo, time.Now())
	if errors.Is(err, repository.ErrNotEmpty) {
		logger.Info("Store already populated, skipping demo seed")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}
	logger.Info("Demo data seeded",
		"users", len(result.Users),
		"wallets", len(result.Wallets),
		"transactions", len(result.Transactions),
	)
	return nil
}
