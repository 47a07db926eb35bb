// cmd/chat-api/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"catalog-chat/internal/cache"
	"catalog-chat/internal/catalog"
	"catalog-chat/internal/common/config"
	"catalog-chat/internal/common/database"
	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/common/observability"
	"catalog-chat/internal/genai"
	"catalog-chat/internal/intent"
	"catalog-chat/internal/memory"
	"catalog-chat/internal/pipeline"
	"catalog-chat/internal/retrieval"
	"catalog-chat/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting chat API...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("chat-api")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis (optional, cache degrades to in-process) ---
	var cacheStore cache.Store
	if cfg.Database.Redis.Address != "" {
		redisClient, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Warn("redis init failed, using local cache", zap.Error(err))
			cacheStore = cache.NewLocal()
		} else {
			defer redisClient.Close()
			cacheStore = cache.New(redisClient.GetClient(), log)
		}
	} else {
		zapLog.Info("Redis not configured, using local cache")
		cacheStore = cache.NewLocal()
	}

	// --- Wire the query pipeline ---
	genaiClient := genai.NewClient(genai.Config{
		BaseURL:        cfg.APIs.GenAI.BaseURL,
		APIKey:         cfg.APIs.GenAI.APIKey,
		ChatModel:      cfg.APIs.GenAI.ChatModel,
		EmbeddingModel: cfg.APIs.GenAI.EmbeddingModel,
		Timeout:        config.GetDuration(cfg.APIs.GenAI.Timeout),
	}, log)

	store := catalog.NewESStore(esClient.Client, cfg.Database.Elasticsearch.ProductIndex, log)
	categories := catalog.NewCategoryLookup(
		store, cacheStore,
		time.Duration(cfg.Chat.CategoryCacheTTL)*time.Second,
		log,
	)
	conversationLog := memory.NewLog(pg.GetDB(), log)

	gateway := intent.NewGateway(
		genaiClient,
		cfg.Chat.MaxConcurrentAI,
		config.GetDuration(cfg.Chat.AIQueueTimeout),
		log,
	)
	orchestrator := retrieval.NewOrchestrator(
		store, genaiClient,
		cfg.Chat.PageSize,
		cfg.Chat.SimilarityThreshold,
		log,
	)
	queryPipeline := pipeline.New(
		gateway, orchestrator, conversationLog, categories,
		cfg.Chat.HistoryWindow,
		log,
	)

	srv := &http.Server{
		Addr:         cfg.App.ListenAddr,
		Handler:      server.New(queryPipeline, obs, log).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.App.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Chat API stopped")
}
