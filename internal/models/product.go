// internal/models/product.go
package models

import "time"

// Product is a catalog record. The catalog index owns it; this service
// only reads product documents (the embedding-sync job is the single
// writer of the embedding fields).
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Price       float64   `json:"price"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`

	// Embedding bookkeeping, maintained by cmd/embedding-sync.
	Embedding  []float32  `json:"embedding,omitempty"`
	EmbeddedAt *time.Time `json:"embedded_at,omitempty"`
}

// EmbeddingText builds the text that is embedded for similarity search.
func (p *Product) EmbeddingText() string {
	tags := ""
	for i, t := range p.Tags {
		if i > 0 {
			tags += ", "
		}
		tags += t
	}
	return "Categoria: " + p.Category + ". Produto: " + p.Name + ". Descrição: " + p.Description + ". Tags: " + tags
}

// NeedsEmbedding reports whether the product has no embedding yet or was
// modified after its embedding was generated.
func (p *Product) NeedsEmbedding() bool {
	if p.EmbeddedAt == nil {
		return true
	}
	return p.UpdatedAt.After(*p.EmbeddedAt)
}
