// cmd/embedding-sync/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"catalog-chat/internal/catalog"
	"catalog-chat/internal/common/config"
	"catalog-chat/internal/common/database"
	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/embedsync"
	"catalog-chat/internal/genai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting embedding sync...",
		zap.Int("intervalMinutes", cfg.Sync.Interval),
		zap.Int("concurrency", cfg.Sync.Concurrency),
	)

	esClient, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		zapLog.Fatal("elasticsearch init failed", zap.Error(err))
	}
	if err := esClient.Ping(); err != nil {
		zapLog.Fatal("elasticsearch unreachable", zap.Error(err))
	}

	genaiClient := genai.NewClient(genai.Config{
		BaseURL:        cfg.APIs.GenAI.BaseURL,
		APIKey:         cfg.APIs.GenAI.APIKey,
		ChatModel:      cfg.APIs.GenAI.ChatModel,
		EmbeddingModel: cfg.APIs.GenAI.EmbeddingModel,
		Timeout:        config.GetDuration(cfg.APIs.GenAI.Timeout),
	}, log)

	store := catalog.NewESStore(esClient.Client, cfg.Database.Elasticsearch.ProductIndex, log)
	syncer := embedsync.NewSyncer(store, genaiClient, cfg.Sync.Concurrency, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(cfg.Sync.Interval) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runSweep(ctx, syncer, zapLog)
	for {
		select {
		case <-ticker.C:
			runSweep(ctx, syncer, zapLog)
		case <-ctx.Done():
			zapLog.Info("Shutdown signal received, stopping embedding sync")
			return
		}
	}
}

func runSweep(ctx context.Context, syncer *embedsync.Syncer, log *zap.Logger) {
	stats, err := syncer.Sweep(ctx)
	if err != nil {
		log.Error("embedding sweep failed", zap.Error(err))
		return
	}
	log.Info("embedding sweep completed",
		zap.Int("scanned", stats.Scanned),
		zap.Int("updated", stats.Updated),
		zap.Int("failed", stats.Failed),
	)
}
