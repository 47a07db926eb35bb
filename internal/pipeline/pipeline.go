// internal/pipeline/pipeline.go
// Package pipeline runs a user message end to end: gather context, extract
// the intent, retrieve products and persist the exchange.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/common/metrics"
	"catalog-chat/internal/intent"
	"catalog-chat/internal/models"
	"catalog-chat/internal/retrieval"
)

const (
	busyReply      = "Estamos com muitas requisições no momento. Por favor, tente novamente em alguns segundos."
	busyQueryLabel = "Servidor Ocupado"

	exhaustedReply  = "Já mostrei todas as opções disponíveis nesta categoria."
	lastPageSuffix  = " (Estas são todas as opções)."
	memoryWriteWait = 5 * time.Second
)

type IntentExtractor interface {
	Extract(ctx context.Context, message string, history []models.ConversationTurn, categories []string) intent.Result
}

type Retriever interface {
	Retrieve(ctx context.Context, it models.Intent, message string) (retrieval.Result, error)
}

type MemoryLog interface {
	Append(ctx context.Context, sessionID string, role models.Role, content string) error
	Recent(ctx context.Context, sessionID string, n int) []models.ConversationTurn
}

type CategorySource interface {
	List(ctx context.Context) []string
}

type Pipeline struct {
	extractor     IntentExtractor
	retriever     Retriever
	memory        MemoryLog
	categories    CategorySource
	historyWindow int
	logger        logger.Logger
}

func New(extractor IntentExtractor, retriever Retriever, memory MemoryLog, categories CategorySource, historyWindow int, log logger.Logger) *Pipeline {
	return &Pipeline{
		extractor:     extractor,
		retriever:     retriever,
		memory:        memory,
		categories:    categories,
		historyWindow: historyWindow,
		logger:        log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
}

// Process answers one user message. Context fetches run in parallel, then
// the intent drives retrieval and the reply gets its end-of-list tuning
// before the exchange is recorded.
func (p *Pipeline) Process(ctx context.Context, req models.QueryRequest) (models.QueryResponse, error) {
	var (
		wg         sync.WaitGroup
		history    []models.ConversationTurn
		categories []string
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		history = p.memory.Recent(ctx, req.SessionID, p.historyWindow)
	}()
	go func() {
		defer wg.Done()
		categories = p.categories.List(ctx)
	}()
	wg.Wait()

	result := p.extractor.Extract(ctx, req.Message, history, categories)
	if result.Outcome == intent.OutcomeBusy {
		return models.QueryResponse{
			InterpretedQuery: busyQueryLabel,
			Reply:            busyReply,
			ServerBusy:       true,
			Products:         []models.Product{},
		}, nil
	}

	it := result.Intent
	metrics.QueriesProcessed.WithLabelValues(string(it.Kind)).Inc()

	products := []models.Product{}
	hasMore := false
	if it.Kind == models.IntentSearchProduct || it.Kind == models.IntentSearchCategory {
		retrieved, err := p.retriever.Retrieve(ctx, it, req.Message)
		if err != nil {
			return models.QueryResponse{}, fmt.Errorf("retrieve products: %w", err)
		}
		products = retrieved.Products
		hasMore = retrieved.HasMore
	}

	reply := tuneReply(it, products, hasMore)

	p.recordExchange(req.SessionID, req.Message, reply)

	return models.QueryResponse{
		InterpretedQuery: interpretedQuery(it),
		Reply:            reply,
		IsCategoryList:   it.ListsCategories,
		HasMore:          hasMore,
		Products:         products,
	}, nil
}

// tuneReply adjusts the model's reply when pagination ran off the end of
// the list or delivered the final page.
func tuneReply(it models.Intent, products []models.Product, hasMore bool) string {
	reply := it.Reply
	if it.Kind != models.IntentSearchProduct && it.Kind != models.IntentSearchCategory {
		return reply
	}

	if len(products) == 0 && it.Page > 1 {
		return exhaustedReply
	}
	if !hasMore && len(products) > 0 {
		return reply + lastPageSuffix
	}
	return reply
}

// recordExchange appends both turns without blocking the response. A failed
// write costs one turn of context, not the request.
func (p *Pipeline) recordExchange(sessionID, userMessage, reply string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), memoryWriteWait)
		defer cancel()

		if err := p.memory.Append(ctx, sessionID, models.RoleUser, userMessage); err != nil {
			metrics.MemoryWriteFailures.Inc()
			p.logger.WithError(err).Warn("Dropping user turn, memory write failed", nil)
		}
		if err := p.memory.Append(ctx, sessionID, models.RoleAssistant, reply); err != nil {
			metrics.MemoryWriteFailures.Inc()
			p.logger.WithError(err).Warn("Dropping assistant turn, memory write failed", nil)
		}
	}()
}

func interpretedQuery(it models.Intent) string {
	term := ""
	if it.HasTerm() {
		term = *it.Term
	}
	return fmt.Sprintf("%s: %s (p%d)", it.Kind, term, it.Page)
}
