package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coinpilot/coinpilot/internal/advisor"
	"github.com/coinpilot/coinpilot/internal/api"
	"github.com/coinpilot/coinpilot/internal/auth"
	"github.com/coinpilot/coinpilot/internal/config"
	"github.com/coinpilot/coinpilot/internal/database"
	"github.com/coinpilot/coinpilot/internal/inference"
	"github.com/coinpilot/coinpilot/internal/logging"
	"github.com/coinpilot/coinpilot/internal/marketdata"
	"github.com/coinpilot/coinpilot/internal/metrics"
	"github.com/coinpilot/coinpilot/internal/scheduler"
	"github.com/coinpilot/coinpilot/internal/server"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"log/slog"
)

func main() {
	// Local dev convenience; in deployment the env is set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting coinpilot")

	logger.Info("connecting to database")
	dbConfig := database.DefaultConfig()
	dbConfig.URL = cfg.Database.URL
	db, err := database.Connect(context.Background(), dbConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	if err := database.RunMigrations(db, "./migrations", logger); err != nil {
		logger.Warn("failed to run migrations, continuing anyway", "error", err)
	}

	userRepo := database.NewUserRepository(db)
	strategyRepo := database.NewStrategyRepository(db)
	recommendationRepo := database.NewRecommendationRepository(db)
	notificationRepo := database.NewNotificationRepository(db)
	inferenceLogRepo := database.NewInferenceLogRepository(db)

	inferenceLogger := inference.NewLogger(inferenceLogRepo, logger)

	var client inference.Client
	switch cfg.Inference.Provider {
	case "anthropic":
		if cfg.Inference.AnthropicAPIKey == "" {
			logger.Error("ANTHROPIC_API_KEY not set")
			os.Exit(1)
		}
		client = inference.NewAnthropicClient(cfg.Inference.AnthropicAPIKey, cfg.Inference.RequestTimeout, logger, inferenceLogger)
	default:
		if cfg.Inference.OpenAIAPIKey == "" {
			logger.Error("OPENAI_API_KEY not set")
			os.Exit(1)
		}
		client = inference.NewOpenAIClient(cfg.Inference.OpenAIAPIKey, cfg.Inference.RequestTimeout, logger, inferenceLogger)
	}
	logger.Info("inference configured", "provider", cfg.Inference.Provider, "model", cfg.Inference.Model)

	var executor inference.ToolExecutor
	switch cfg.MarketData.Mode {
	case "live":
		executor = marketdata.NewCoinGeckoExecutor(cfg.MarketData.BaseURL, cfg.MarketData.APIKey, cfg.MarketData.RequestTimeout, logger)
	default:
		executor = marketdata.NewSimulatedExecutor(logger)
	}
	logger.Info("market data configured", "mode", cfg.MarketData.Mode)

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	engine := advisor.New(client, executor, advisor.Config{
		Model:          cfg.Inference.Model,
		MaxToolRounds:  cfg.Advisor.MaxToolRounds,
		CandidateLimit: cfg.Advisor.CandidateLimit,
	}, logger)
	service := advisor.NewService(engine, recommendationRepo, notificationRepo, logger).WithObserver(collector)

	authConfig := auth.LoadConfigFromEnv()
	logger.Info("auth configured", "jwt_secret_set", authConfig.JWTSecret != "change-this-secret")

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	api.SetupRoutes(mux, api.Deps{
		DB:              db,
		Users:           userRepo,
		Strategies:      strategyRepo,
		Recommendations: recommendationRepo,
		Notifications:   notificationRepo,
		Service:         service,
		AuthConfig:      authConfig,
		Logger:          logger,
	})

	logger.Info("starting advisor scheduler")
	advisorScheduler := scheduler.NewAdvisorScheduler(strategyRepo, service, logger)
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	go advisorScheduler.Start(schedulerCtx)

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("coinpilot started", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	waitForSignal(logger)

	logger.Info("shutting down")
	schedulerCancel()
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
