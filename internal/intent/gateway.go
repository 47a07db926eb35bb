// internal/intent/gateway.go
// Package intent turns free-form user messages into structured intents via
// the generative model, guarding the upstream with an admission gate.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/common/metrics"
	"catalog-chat/internal/models"
)

// fallbackReply is shown when the model answered but the answer is unusable.
const fallbackReply = "Desculpe, não entendi. Pode repetir?"

// Outcome says how an extraction ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeBusy     Outcome = "busy"
	OutcomeFallback Outcome = "fallback"
)

// Result carries the extraction outcome. Fallback results still hold a
// renderable Intent; busy results hold nothing useful beyond the flag.
type Result struct {
	Outcome Outcome
	Intent  models.Intent
}

// CompletionClient is the slice of the generative client the gateway needs.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Gateway serializes access to the completion model. At most maxConcurrent
// extractions run at once; a request waits at most queueTimeout for a slot
// AND the remote call combined, then reports busy.
type Gateway struct {
	client       CompletionClient
	slots        chan struct{}
	queueTimeout time.Duration
	logger       logger.Logger
}

func NewGateway(client CompletionClient, maxConcurrent int, queueTimeout time.Duration, log logger.Logger) *Gateway {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Gateway{
		client:       client,
		slots:        make(chan struct{}, maxConcurrent),
		queueTimeout: queueTimeout,
		logger:       log.WithFields(map[string]interface{}{"component": "intent"}),
	}
}

// Extract interprets a user message in the context of recent history and the
// known categories.
func (g *Gateway) Extract(ctx context.Context, message string, history []models.ConversationTurn, categories []string) Result {
	ctx, cancel := context.WithTimeout(ctx, g.queueTimeout)
	defer cancel()

	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		g.logger.Warn("Admission queue timed out, reporting busy", nil)
		metrics.IntentOutcomes.WithLabelValues(string(OutcomeBusy)).Inc()
		return Result{Outcome: OutcomeBusy}
	}
	defer func() { <-g.slots }()

	raw, err := g.client.Complete(ctx, buildPrompt(message, history, categories))
	if err != nil {
		// Only the admission deadline counts as busy. A cancelled parent
		// context means the caller went away, which is a plain failure.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			g.logger.WithError(err).Warn("Model call hit the admission deadline, reporting busy", nil)
			metrics.IntentOutcomes.WithLabelValues(string(OutcomeBusy)).Inc()
			return Result{Outcome: OutcomeBusy}
		}
		g.logger.WithError(err).Error("Model call failed, returning fallback intent", nil)
		return g.fallback()
	}

	intent, err := parseIntent(raw)
	if err != nil {
		g.logger.WithError(err).WithFields(map[string]interface{}{
			"raw_length": len(raw),
		}).Warn("Model returned unusable intent, returning fallback", nil)
		return g.fallback()
	}

	metrics.IntentOutcomes.WithLabelValues(string(OutcomeOK)).Inc()
	return Result{Outcome: OutcomeOK, Intent: intent}
}

func (g *Gateway) fallback() Result {
	metrics.IntentOutcomes.WithLabelValues(string(OutcomeFallback)).Inc()
	return Result{
		Outcome: OutcomeFallback,
		Intent: models.Intent{
			Kind:  models.IntentConversation,
			Page:  1,
			Reply: fallbackReply,
		},
	}
}

// wireIntent mirrors models.Intent but keeps page loose, since the model
// occasionally quotes it.
type wireIntent struct {
	Kind              models.IntentKind `json:"type"`
	Term              *string           `json:"term"`
	Tag               *string           `json:"tag"`
	PriceMin          *float64          `json:"price_min"`
	PriceMax          *float64          `json:"price_max"`
	PriceExact        *float64          `json:"price_exact"`
	PriceMinExclusive bool              `json:"price_min_exclusive"`
	PriceMaxExclusive bool              `json:"price_max_exclusive"`
	Page              interface{}       `json:"page"`
	Sort              *string           `json:"sort"`
	Reply             string            `json:"ai_reply"`
	ListsCategories   bool              `json:"is_category_list"`
}

func parseIntent(raw string) (models.Intent, error) {
	cleaned := stripFences(raw)

	if err := validateIntentJSON(cleaned); err != nil {
		return models.Intent{}, err
	}

	var wire wireIntent
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return models.Intent{}, err
	}

	intent := models.Intent{
		Kind:              wire.Kind,
		Term:              wire.Term,
		Tag:               wire.Tag,
		PriceMin:          wire.PriceMin,
		PriceMax:          wire.PriceMax,
		PriceExact:        wire.PriceExact,
		PriceMinExclusive: wire.PriceMinExclusive,
		PriceMaxExclusive: wire.PriceMaxExclusive,
		Page:              coercePage(wire.Page),
		Reply:             wire.Reply,
		ListsCategories:   wire.ListsCategories,
	}
	if wire.Sort != nil {
		intent.Sort = models.SortOrder(*wire.Sort)
	}
	return intent, nil
}

// stripFences removes the markdown code fences the model wraps JSON in
// despite being told not to.
func stripFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

func coercePage(v interface{}) int {
	switch page := v.(type) {
	case float64:
		if page >= 1 {
			return int(page)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(page)); err == nil && n >= 1 {
			return n
		}
	}
	return 1
}
