package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/potlock/donation-indexer/internal/application/services"
	"github.com/potlock/donation-indexer/internal/config"
	"github.com/potlock/donation-indexer/internal/infrastructure/database"
	"github.com/potlock/donation-indexer/internal/infrastructure/near"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting donation indexer",
		zap.String("rpc_url", cfg.NEAR.RPCURL),
		zap.Duration("poll_interval", cfg.Indexer.PollInterval),
	)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.NewPostgresDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Connect to NEAR RPC
	nearClient := near.NewClient(cfg.NEAR, logger)

	// Create repositories
	accountRepo := database.NewAccountRepo(db.DB())
	donationRepo := database.NewDonationRepo(db.DB())
	payoutRepo := database.NewPayoutRepo(db.DB())
	potRepo := database.NewPotRepo(db.DB())
	campaignRepo := database.NewCampaignRepo(db.DB())
	checkpointRepo := database.NewCheckpointRepo(db.DB())
	priceRepo := database.NewPriceRepo(db.DB())

	// Create services
	parser := near.NewEventParser(logger)
	priceService := services.NewPriceService(priceRepo, cfg.Pricing, logger)
	metrics := services.NewIndexerMetrics()

	indexerService := services.NewIndexerService(
		nearClient,
		parser,
		priceService,
		accountRepo,
		donationRepo,
		payoutRepo,
		potRepo,
		campaignRepo,
		checkpointRepo,
		cfg.Indexer,
		logger,
		metrics,
	)

	// Start indexer
	if err := indexerService.Start(ctx); err != nil {
		logger.Fatal("Failed to start indexer", zap.Error(err))
	}

	// Start metrics server
	go startMetricsServer(cfg.Indexer.MetricsPort, logger)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, stopping indexer...")

	// Graceful shutdown
	indexerService.Stop()

	logger.Info("Indexer stopped")
}

func setupLogger(cfg config.LogConfig) *zap.Logger {
	var zapLevel zapcore.Level
	switch cfg.Level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	encoding := "json"
	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := zapConfig.Build()
	return logger
}

func startMetricsServer(port int, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", zap.String("addr", addr))

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Metrics server error", zap.Error(err))
	}
}
