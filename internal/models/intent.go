// internal/models/intent.go
package models

// IntentKind classifies what the user is asking for.
type IntentKind string

const (
	IntentSearchProduct  IntentKind = "search_product"
	IntentSearchCategory IntentKind = "search_category"
	IntentConversation   IntentKind = "conversation"
)

// SortOrder is the price ordering requested by the user, if any.
type SortOrder string

const (
	SortNone      SortOrder = ""
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
)

// Intent is the structured interpretation of a single user message.
// It is built once per request by the intent gateway and consumed
// immediately by the query pipeline; it is never persisted.
type Intent struct {
	Kind              IntentKind `json:"type"`
	Term              *string    `json:"term"`
	Tag               *string    `json:"tag"`
	PriceMin          *float64   `json:"price_min"`
	PriceMax          *float64   `json:"price_max"`
	PriceExact        *float64   `json:"price_exact"`
	PriceMinExclusive bool       `json:"price_min_exclusive"`
	PriceMaxExclusive bool       `json:"price_max_exclusive"`
	Page              int        `json:"page"`
	Sort              SortOrder  `json:"sort"`
	Reply             string     `json:"ai_reply"`
	ListsCategories   bool       `json:"is_category_list"`
}

// HasTerm reports whether the intent names a concrete product or category.
func (i *Intent) HasTerm() bool {
	return i.Term != nil && *i.Term != ""
}
