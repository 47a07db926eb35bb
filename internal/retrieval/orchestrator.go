// internal/retrieval/orchestrator.go
// Package retrieval runs the hybrid catalog search: an exact filtered query
// and a semantic vector query fanned out in parallel, merged exact-first.
package retrieval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catalog-chat/internal/catalog"
	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/common/metrics"
	"catalog-chat/internal/genai"
	"catalog-chat/internal/models"
)

// Embedder is the slice of the generative client retrieval needs.
type Embedder interface {
	Embed(ctx context.Context, text string, task genai.TaskType) ([]float32, error)
}

// Result is one page of products plus whether another page exists.
type Result struct {
	Products []models.Product
	HasMore  bool
}

type Orchestrator struct {
	store     catalog.Store
	embedder  Embedder
	pageSize  int
	threshold float64
	logger    logger.Logger
}

func NewOrchestrator(store catalog.Store, embedder Embedder, pageSize int, threshold float64, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		embedder:  embedder,
		pageSize:  pageSize,
		threshold: threshold,
		logger:    log.WithFields(map[string]interface{}{"component": "retrieval"}),
	}
}

// Retrieve fetches the page of products an intent asks for. The original
// user message drives the semantic leg, since the extracted term loses
// nuance the embedding can still capture.
func (o *Orchestrator) Retrieve(ctx context.Context, intent models.Intent, message string) (Result, error) {
	if intent.Kind == models.IntentSearchCategory && !intent.HasTerm() {
		return Result{Products: []models.Product{}}, nil
	}

	filter := o.buildFilter(intent)

	var (
		wg       sync.WaitGroup
		exact    []models.Product
		similar  []models.Product
		errExact error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		start := time.Now()
		exact, errExact = o.store.Search(ctx, filter)
		metrics.RetrievalDuration.WithLabelValues("exact").Observe(time.Since(start).Seconds())
	}()

	if o.vectorEligible(intent, message) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			similar = o.vectorLeg(ctx, message)
			metrics.RetrievalDuration.WithLabelValues("vector").Observe(time.Since(start).Seconds())
		}()
	}

	wg.Wait()

	if errExact != nil {
		return Result{}, fmt.Errorf("exact search: %w", errExact)
	}

	merged := mergeDedup(exact, similar, o.pageSize+1)
	hasMore := len(merged) > o.pageSize
	if hasMore {
		merged = merged[:o.pageSize]
	}
	return Result{Products: merged, HasMore: hasMore}, nil
}

func (o *Orchestrator) buildFilter(intent models.Intent) catalog.Filter {
	page := intent.Page
	if page < 1 {
		page = 1
	}

	filter := catalog.Filter{
		PriceMin:     intent.PriceMin,
		PriceMax:     intent.PriceMax,
		PriceExact:   intent.PriceExact,
		MinExclusive: intent.PriceMinExclusive,
		MaxExclusive: intent.PriceMaxExclusive,
		Sort:         intent.Sort,
		Limit:        o.pageSize + 1,
		Offset:       (page - 1) * o.pageSize,
	}

	if intent.Tag != nil {
		filter.Tag = *intent.Tag
	}

	if intent.HasTerm() {
		if intent.Kind == models.IntentSearchCategory {
			filter.Category = *intent.Term
		} else {
			filter.Term = *intent.Term
		}
	}
	return filter
}

// vectorEligible gates the semantic leg. Exact-price requests are literal
// lookups where similarity would only add noise.
func (o *Orchestrator) vectorEligible(intent models.Intent, message string) bool {
	return intent.PriceExact == nil && message != ""
}

// vectorLeg never fails retrieval: an embedding or search error just means
// no semantic contribution.
func (o *Orchestrator) vectorLeg(ctx context.Context, message string) []models.Product {
	embedding, err := o.embedder.Embed(ctx, message, genai.TaskQuery)
	if err != nil {
		o.logger.WithError(err).Warn("Query embedding failed, skipping semantic search", nil)
		return nil
	}

	products, err := o.store.VectorSearch(ctx, embedding, o.threshold, o.pageSize+1)
	if err != nil {
		o.logger.WithError(err).Warn("Semantic search failed, using exact results only", nil)
		return nil
	}
	return products
}

// mergeDedup keeps exact matches first, appends semantic matches not already
// present, and truncates to limit.
func mergeDedup(exact, similar []models.Product, limit int) []models.Product {
	seen := make(map[string]struct{}, len(exact))
	merged := make([]models.Product, 0, limit)

	for _, p := range exact {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		merged = append(merged, p)
		if len(merged) == limit {
			return merged
		}
	}
	for _, p := range similar {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		merged = append(merged, p)
		if len(merged) == limit {
			break
		}
	}
	return merged
}
