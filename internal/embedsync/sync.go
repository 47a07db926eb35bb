// internal/embedsync/sync.go
// Package embedsync keeps catalog embeddings current: products whose text
// changed since their last embedding get re-embedded and written back.
package embedsync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"catalog-chat/internal/catalog"
	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/genai"
	"catalog-chat/internal/models"
)

// Embedder is the slice of the generative client the sweep needs.
type Embedder interface {
	Embed(ctx context.Context, text string, task genai.TaskType) ([]float32, error)
}

// Stats summarizes one sweep.
type Stats struct {
	Scanned int
	Updated int
	Failed  int
}

type Syncer struct {
	store       catalog.SyncStore
	embedder    Embedder
	concurrency int
	logger      logger.Logger
}

func NewSyncer(store catalog.SyncStore, embedder Embedder, concurrency int, log logger.Logger) *Syncer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Syncer{
		store:       store,
		embedder:    embedder,
		concurrency: concurrency,
		logger:      log.WithFields(map[string]interface{}{"component": "embedsync"}),
	}
}

// Sweep embeds every stale product once. Individual failures are logged and
// counted; only listing the catalog or pool setup can fail the sweep.
func (s *Syncer) Sweep(ctx context.Context) (Stats, error) {
	products, err := s.store.ProductsForEmbedding(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list products: %w", err)
	}

	stats := Stats{Scanned: len(products)}

	stale := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.NeedsEmbedding() {
			stale = append(stale, p)
		}
	}
	if len(stale) == 0 {
		s.logger.Info("All product embeddings are current", nil)
		return stats, nil
	}

	pool, err := ants.NewPool(s.concurrency)
	if err != nil {
		return Stats{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg      sync.WaitGroup
		updated atomic.Int64
		failed  atomic.Int64
	)

	for _, p := range stale {
		product := p
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := s.refresh(ctx, product); err != nil {
				failed.Add(1)
				s.logger.WithError(err).WithFields(map[string]interface{}{
					"product_id": product.ID,
				}).Warn("Embedding refresh failed", nil)
				return
			}
			updated.Add(1)
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
			s.logger.WithError(submitErr).Warn("Worker pool rejected embedding task", nil)
		}
	}
	wg.Wait()

	stats.Updated = int(updated.Load())
	stats.Failed = int(failed.Load())
	s.logger.WithFields(map[string]interface{}{
		"scanned": stats.Scanned,
		"updated": stats.Updated,
		"failed":  stats.Failed,
	}).Info("Embedding sweep finished", nil)
	return stats, nil
}

func (s *Syncer) refresh(ctx context.Context, product models.Product) error {
	embedding, err := s.embedder.Embed(ctx, product.EmbeddingText(), genai.TaskDocument)
	if err != nil {
		return fmt.Errorf("embed product %s: %w", product.ID, err)
	}
	return s.store.UpdateEmbedding(ctx, product.ID, embedding)
}
