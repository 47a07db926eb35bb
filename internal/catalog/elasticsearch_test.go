package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-chat/internal/cache"
	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/models"
)

func newTestES(t *testing.T, handler http.HandlerFunc) (*ESStore, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return NewESStore(client, "products", logger.NewTestLogger(t)), server
}

func searchResponse(products ...models.Product) map[string]interface{} {
	hits := make([]map[string]interface{}, 0, len(products))
	for _, p := range products {
		hits = append(hits, map[string]interface{}{"_id": p.ID, "_source": p})
	}
	return map[string]interface{}{
		"hits": map[string]interface{}{"hits": hits},
	}
}

func TestSearchBuildsBoolQuery(t *testing.T) {
	var captured map[string]interface{}

	store, server := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		assert.Equal(t, "5", r.URL.Query().Get("from"))
		assert.Equal(t, "6", r.URL.Query().Get("size"))
		json.NewEncoder(w).Encode(searchResponse(
			models.Product{ID: "p1", Name: "Abacate", Price: 8.5},
		))
	})
	defer server.Close()

	min := 5.0
	max := 20.0
	products, err := store.Search(context.Background(), Filter{
		Term:     "abacate",
		Tag:      "vegano",
		PriceMin: &min,
		PriceMax: &max,
		Sort:     models.SortPriceAsc,
		Limit:    6,
		Offset:   5,
	})

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)

	boolQuery := captured["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	require.Len(t, must, 1)
	multiMatch := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "abacate", multiMatch["query"])

	filters := boolQuery["filter"].([]interface{})
	require.Len(t, filters, 2)

	priceRange := filters[1].(map[string]interface{})["range"].(map[string]interface{})["price"].(map[string]interface{})
	assert.Equal(t, 5.0, priceRange["gte"])
	assert.Equal(t, 20.0, priceRange["lte"])

	sort := captured["sort"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "asc", sort["price"])
}

func TestSearchExclusiveBounds(t *testing.T) {
	min := 10.0
	filter := Filter{PriceMin: &min, MinExclusive: true, Limit: 6}

	query := buildSearchQuery(filter)

	boolQuery := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	_, isMatchAll := must[0].(map[string]interface{})["match_all"]
	assert.True(t, isMatchAll, "termless filter should fall back to match_all")

	priceRange := boolQuery["filter"].([]interface{})[0].(map[string]interface{})["range"].(map[string]interface{})["price"].(map[string]interface{})
	assert.Equal(t, 10.0, priceRange["gt"])
	assert.NotContains(t, priceRange, "gte")
}

func TestSearchExactPriceWinsOverRange(t *testing.T) {
	exact := 9.99
	min := 1.0
	filter := Filter{PriceExact: &exact, PriceMin: &min, Limit: 6}

	query := buildSearchQuery(filter)

	filters := query["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	require.Len(t, filters, 1)
	term := filters[0].(map[string]interface{})["term"].(map[string]interface{})
	assert.Equal(t, 9.99, term["price"])
}

func TestSearchServerError(t *testing.T) {
	store, server := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "boom"})
	})
	defer server.Close()

	_, err := store.Search(context.Background(), Filter{Term: "x", Limit: 6})

	assert.ErrorIs(t, err, ErrSearchQueryFailed)
}

func TestVectorSearchShiftsThreshold(t *testing.T) {
	var captured map[string]interface{}

	store, server := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		json.NewEncoder(w).Encode(searchResponse(
			models.Product{ID: "v1", Name: "Tofu"},
			models.Product{ID: "v2", Name: "Seitan"},
		))
	})
	defer server.Close()

	products, err := store.VectorSearch(context.Background(), []float32{0.1, 0.2}, 0.3, 6)

	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.InDelta(t, 1.3, captured["min_score"].(float64), 1e-9)

	script := captured["query"].(map[string]interface{})["script_score"].(map[string]interface{})["script"].(map[string]interface{})
	assert.Contains(t, script["source"], "cosineSimilarity")
}

func TestSearchFillsIDFromHitID(t *testing.T) {
	store, server := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{
				"hits": []map[string]interface{}{
					{"_id": "es-42", "_source": map[string]interface{}{"name": "Pão"}},
				},
			},
		})
	})
	defer server.Close()

	products, err := store.Search(context.Background(), Filter{Term: "pão", Limit: 6})

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "es-42", products[0].ID)
}

func TestCategoriesAggregation(t *testing.T) {
	store, server := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("size"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"aggregations": map[string]interface{}{
				"categories": map[string]interface{}{
					"buckets": []map[string]interface{}{
						{"key": "Bebidas", "doc_count": 12},
						{"key": "Padaria", "doc_count": 7},
						{"key": "", "doc_count": 1},
					},
				},
			},
		})
	})
	defer server.Close()

	categories, err := store.Categories(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"Bebidas", "Padaria"}, categories)
}

func TestUpdateEmbedding(t *testing.T) {
	var captured map[string]interface{}

	store, server := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/products/_update/p7")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		json.NewEncoder(w).Encode(map[string]interface{}{"result": "updated"})
	})
	defer server.Close()

	err := store.UpdateEmbedding(context.Background(), "p7", []float32{0.5, 0.6})

	require.NoError(t, err)
	doc := captured["doc"].(map[string]interface{})
	assert.Len(t, doc["embedding"].([]interface{}), 2)
	assert.NotEmpty(t, doc["embedded_at"])
}

type stubStore struct {
	categories []string
	err        error
	calls      int
}

func (s *stubStore) Search(ctx context.Context, f Filter) ([]models.Product, error) { return nil, nil }
func (s *stubStore) VectorSearch(ctx context.Context, e []float32, t float64, l int) ([]models.Product, error) {
	return nil, nil
}
func (s *stubStore) Categories(ctx context.Context) ([]string, error) {
	s.calls++
	return s.categories, s.err
}

func TestCategoryLookupCaches(t *testing.T) {
	store := &stubStore{categories: []string{"Frutas", "Laticínios"}}
	lookup := NewCategoryLookup(store, cache.NewLocal(), time.Hour, logger.NewTestLogger(t))

	first := lookup.List(context.Background())
	second := lookup.List(context.Background())

	assert.Equal(t, []string{"Frutas", "Laticínios"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.calls, "second call should be served from cache")
}

func TestCategoryLookupDegradesToEmpty(t *testing.T) {
	store := &stubStore{err: ErrCategoryQueryFailed}
	lookup := NewCategoryLookup(store, cache.NewLocal(), time.Hour, logger.NewTestLogger(t))

	categories := lookup.List(context.Background())

	assert.Empty(t, categories)
	assert.NotNil(t, categories)
}
