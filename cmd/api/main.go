package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cancermitr/care-platform/internal/api/router"
	"github.com/cancermitr/care-platform/internal/chat"
	appconfig "github.com/cancermitr/care-platform/internal/config"
	"github.com/cancermitr/care-platform/internal/notify"
	"github.com/cancermitr/care-platform/internal/observability/metrics"
	"github.com/cancermitr/care-platform/internal/portal"
	"github.com/cancermitr/care-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting cancermitr care-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Separate database/sql handle for the portal read layer.
	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open sql database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	redisClient, err := chat.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, history caching disabled", "error", err)
		redisClient = nil
	}

	// Primary oracle: Gemini. Fallback: Bedrock Converse, when configured.
	gemini, err := chat.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer func() { _ = gemini.Close() }()

	var llm chat.LLMClient = gemini
	if cfg.BedrockModelID != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		bedrock := chat.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		llm = chat.NewFallbackLLMClient(gemini, bedrock, logger)
	}

	oracle := chat.NewOracle(llm, cfg.GeminiModelID, cfg.OracleTimeout, logger)

	retry := chat.BackoffPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
	}
	store := chat.NewStore(pool, retry, logger)

	chatMetrics := metrics.NewChatMetrics(nil)

	var mailer *notify.BookingMailer
	if cfg.SendGridAPIKey != "" {
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		mailer = notify.NewBookingMailer(sender, logger)
	}

	opts := []chat.OrchestratorOption{
		chat.WithHistoryWindows(cfg.HistoryWindow, cfg.WideHistoryWindow),
		chat.WithMetrics(chatMetrics),
		chat.WithHistoryCache(chat.NewHistoryCache(redisClient, logger)),
	}
	if mailer != nil {
		opts = append(opts, chat.WithNotifier(mailer))
	}
	orchestrator := chat.NewOrchestrator(store, oracle, logger, opts...)

	chatHandler := chat.NewHandler(orchestrator, store, logger)
	portalHandler := portal.NewHandler(portal.NewService(sqlDB, logger), logger)

	allowAnonymous := cfg.AllowAnonymous && !cfg.IsProduction()
	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		PortalHandler:      portalHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		JWTSecret:          cfg.JWTSecret,
		AllowAnonymous:     allowAnonymous,
		ChatRateLimit:      float64(cfg.ChatRateLimit),
		ChatRateBurst:      cfg.ChatRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
