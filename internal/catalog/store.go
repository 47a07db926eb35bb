// Package catalog exposes the product index to the rest of the service:
// exact attribute-filtered search, vector-similarity search, and the
// distinct category list. The index itself is owned elsewhere; this
// package only queries it (plus the narrow write path the embedding-sync
// job needs).
package catalog

import (
	"context"
	"errors"

	"catalog-chat/internal/models"
)

var (
	ErrSearchQueryFailed   = errors.New("SEARCH_QUERY_FAILED")
	ErrCategoryQueryFailed = errors.New("CATEGORY_QUERY_FAILED")
)

// Filter describes one exact-match catalog query. It is built once per
// retrieval call from an Intent and not mutated afterwards.
type Filter struct {
	Term     string
	Category string
	Tag      string

	PriceMin     *float64
	PriceMax     *float64
	PriceExact   *float64
	MinExclusive bool
	MaxExclusive bool

	Sort   models.SortOrder
	Limit  int
	Offset int
}

// Store is the catalog query contract consumed by retrieval and the
// category lookup.
type Store interface {
	// Search runs the exact attribute-filtered query.
	Search(ctx context.Context, filter Filter) ([]models.Product, error)

	// VectorSearch returns the nearest products above the cosine-similarity
	// threshold, best first.
	VectorSearch(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.Product, error)

	// Categories returns the distinct category values present in the index.
	Categories(ctx context.Context) ([]string, error)
}

// SyncStore adds the embedding-sync read/update paths on top of Store.
type SyncStore interface {
	Store

	// ProductsForEmbedding lists products with the fields the sync job
	// needs to decide staleness (updated_at vs embedded_at).
	ProductsForEmbedding(ctx context.Context) ([]models.Product, error)

	// UpdateEmbedding writes a fresh vector onto a product document.
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}
