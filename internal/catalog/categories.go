// internal/catalog/categories.go
package catalog

import (
	"context"
	"encoding/json"
	"time"

	"catalog-chat/internal/cache"
	"catalog-chat/internal/common/logger"
)

const categoriesCacheKey = "categories_list"

// CategoryLookup serves the distinct category list, caching it so the
// aggregation does not run on every query.
type CategoryLookup struct {
	store  Store
	cache  cache.Store
	ttl    time.Duration
	logger logger.Logger
}

func NewCategoryLookup(store Store, c cache.Store, ttl time.Duration, log logger.Logger) *CategoryLookup {
	return &CategoryLookup{
		store:  store,
		cache:  c,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "categories"}),
	}
}

// List returns the known categories. Failures degrade to an empty list so
// intent extraction can still run without category hints.
func (l *CategoryLookup) List(ctx context.Context) []string {
	if data, ok := l.cache.Get(ctx, categoriesCacheKey); ok {
		var categories []string
		if err := json.Unmarshal(data, &categories); err == nil {
			return categories
		}
		l.logger.Warn("Discarding unreadable cached category list", nil)
	}

	categories, err := l.store.Categories(ctx)
	if err != nil {
		l.logger.WithError(err).Warn("Category lookup failed, continuing without categories", nil)
		return []string{}
	}

	if data, err := json.Marshal(categories); err == nil {
		l.cache.Set(ctx, categoriesCacheKey, data, l.ttl)
	}
	return categories
}
