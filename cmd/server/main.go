package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avvvet/krishiseva/internal/app"
	"github.com/avvvet/krishiseva/internal/config"
	"github.com/avvvet/krishiseva/internal/transport"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	logger.Info("🚀 Starting KrishiSeva farmer assistant...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("❌ Failed to load config", "error", err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	logger.Info("📋 Service", "name", cfg.ServiceName)
	logger.Info("📡 NATS", "url", cfg.NatsURL, "prefix", cfg.NatsSubjectPrefix)
	logger.Info("🤖 Model", "provider", cfg.LLMProvider, "model", cfg.LLMModel)
	logger.Info("💾 Redis", "url", cfg.RedisURL)
	logger.Info("📚 Knowledge index", "backend", cfg.VectorBackend)

	if cfg.LLMAPIKey == "" {
		logger.Fatal("❌ LLM_API_KEY environment variable is required")
	}

	ctx := context.Background()

	logger.Info("🧠 Wiring pipeline...")
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("❌ Failed to build pipeline", "error", err)
	}
	logger.Info("✅ Pipeline ready")

	logger.Info("🔌 Connecting to NATS...")
	natsTransport, err := transport.NewNATSTransport(transport.NATSConfig{
		URL:            cfg.NatsURL,
		Name:           cfg.ServiceName,
		SubjectPrefix:  cfg.NatsSubjectPrefix,
		RequestTimeout: cfg.NatsTimeout,
		MaxConcurrency: int64(cfg.MaxConcurrency),
		Logger:         logger.WithPrefix("nats"),
	}, application.Handler)
	if err != nil {
		logger.Fatal("❌ Failed to initialize NATS transport", "error", err)
	}

	if err := natsTransport.Start(); err != nil {
		logger.Fatal("❌ Failed to start NATS transport", "error", err)
	}

	ops := transport.NewOpsServer(cfg.OpsAddr,
		map[string]transport.Pinger{"redis": application.Sessions},
		application.Metrics.Handler(),
		logger.WithPrefix("ops"),
	)
	go func() {
		if err := ops.Start(); err != nil {
			logger.Error("⚠️ Ops server stopped", "error", err)
		}
	}()

	logger.Info("✅ KrishiSeva is running!")
	logger.Info("👂 Listening", "subject", cfg.Subject(transport.OpAsk))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("🛑 Received signal", "signal", sig)
	logger.Info("🔄 Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Warn("⚠️ Error stopping ops server", "error", err)
	}

	if err := natsTransport.Close(); err != nil {
		logger.Warn("⚠️ Error closing NATS transport", "error", err)
	}

	if err := application.Close(); err != nil {
		logger.Warn("⚠️ Error closing pipeline", "error", err)
	}

	logger.Info("👋 KrishiSeva stopped")
}
