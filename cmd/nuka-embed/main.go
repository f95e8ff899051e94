package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/nuka-embed/internal/api"
	"github.com/nidhogg/nuka-embed/internal/config"
	"github.com/nidhogg/nuka-embed/internal/embedding"
	"github.com/nidhogg/nuka-embed/internal/retrieval"
	"github.com/nidhogg/nuka-embed/internal/vectorstore"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	// Empty CONFIG_PATH means environment-only configuration.
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting nuka-embed...", zap.String("config", cfgPath))

	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		logger.Fatal("failed to initialize embedding provider", zap.Error(err))
	}

	// Qdrant is optional; without it the retrieval routes answer 503.
	var (
		index  api.Retriever
		qdrant *vectorstore.Client
	)
	if cfg.Qdrant.Enabled() {
		qdrant, err = vectorstore.NewClient(vectorstore.QdrantConfig{Host: cfg.Qdrant.Host, Port: cfg.Qdrant.Port})
		if err != nil {
			logger.Warn("Qdrant unavailable, running without retrieval", zap.Error(err))
		} else {
			index = retrieval.NewIndex(embedder, qdrant, cfg.Qdrant.Collection, retrieval.DefaultBatchSize, logger)
			logger.Info("retrieval index enabled",
				zap.String("host", cfg.Qdrant.Host),
				zap.Int("port", cfg.Qdrant.Port),
				zap.String("collection", cfg.Qdrant.Collection))
		}
	}

	handler := api.NewHandler(embedder, index, logger)

	port := fmt.Sprintf("%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("nuka-embed listening", zap.String("port", port), zap.String("provider", embedding.NameOf(embedder)))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down nuka-embed...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	if qdrant != nil {
		qdrant.Close()
	}
	logger.Info("nuka-embed stopped")
}
