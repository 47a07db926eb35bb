package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/models"
)

const maxCategoryBuckets = 500

// ESStore implements SyncStore against an Elasticsearch product index.
type ESStore struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewESStore(client *elasticsearch.Client, index string, log logger.Logger) *ESStore {
	return &ESStore{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "catalog", "index": index}),
	}
}

func (s *ESStore) Search(ctx context.Context, filter Filter) ([]models.Product, error) {
	queryBody := buildSearchQuery(filter)

	body, _ := json.Marshal(queryBody)
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		From:  &filter.Offset,
		Size:  &filter.Limit,
	}

	products, err := s.doSearch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	return products, nil
}

func (s *ESStore) VectorSearch(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.Product, error) {
	queryBody := buildVectorQuery(embedding, threshold)

	body, _ := json.Marshal(queryBody)
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		Size:  &limit,
	}

	products, err := s.doSearch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	return products, nil
}

func (s *ESStore) Categories(ctx context.Context) ([]string, error) {
	size := 0
	queryBody := map[string]interface{}{
		"aggs": map[string]interface{}{
			"categories": map[string]interface{}{
				"terms": map[string]interface{}{
					"field": "category",
					"size":  maxCategoryBuckets,
				},
			},
		},
	}

	body, _ := json.Marshal(queryBody)
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCategoryQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrCategoryQueryFailed, res.Status())
	}

	var r struct {
		Aggregations struct {
			Categories struct {
				Buckets []struct {
					Key string `json:"key"`
				} `json:"buckets"`
			} `json:"categories"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrCategoryQueryFailed, err)
	}

	categories := make([]string, 0, len(r.Aggregations.Categories.Buckets))
	for _, bucket := range r.Aggregations.Categories.Buckets {
		if bucket.Key != "" {
			categories = append(categories, bucket.Key)
		}
	}
	return categories, nil
}

func (s *ESStore) ProductsForEmbedding(ctx context.Context) ([]models.Product, error) {
	size := 1000
	queryBody := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"sort":  []map[string]interface{}{{"updated_at": map[string]interface{}{"order": "asc", "missing": "_first"}}},
	}

	body, _ := json.Marshal(queryBody)
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	products, err := s.doSearch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	return products, nil
}

func (s *ESStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	now := time.Now().UTC()
	doc := map[string]interface{}{
		"doc": map[string]interface{}{
			"embedding":   embedding,
			"embedded_at": now,
		},
	}

	body, _ := json.Marshal(doc)
	req := esapi.UpdateRequest{
		Index:      s.index,
		DocumentID: id,
		Body:       strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("update embedding %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("update embedding %s: %s", id, res.Status())
	}
	return nil
}

func (s *ESStore) doSearch(ctx context.Context, req esapi.SearchRequest) ([]models.Product, error) {
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	products := make([]models.Product, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		p := hit.Source
		if p.ID == "" {
			p.ID = hit.ID
		}
		products = append(products, p)
	}
	return products, nil
}

// buildSearchQuery builds the exact-match bool query: free-text term over
// name and description, term filters for category and tag, price ranges
// with the inclusivity the intent asked for, and optional price sorting.
func buildSearchQuery(filter Filter) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if filter.Term != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  filter.Term,
				"fields": []string{"name^3", "description^2"},
				"type":   "best_fields",
			},
		})
	}

	if filter.Category != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"category": filter.Category},
		})
	}

	if filter.Tag != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"tags": filter.Tag},
		})
	}

	if filter.PriceExact != nil {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"price": *filter.PriceExact},
		})
	} else {
		priceRange := map[string]interface{}{}
		if filter.PriceMin != nil {
			if filter.MinExclusive {
				priceRange["gt"] = *filter.PriceMin
			} else {
				priceRange["gte"] = *filter.PriceMin
			}
		}
		if filter.PriceMax != nil {
			if filter.MaxExclusive {
				priceRange["lt"] = *filter.PriceMax
			} else {
				priceRange["lte"] = *filter.PriceMax
			}
		}
		if len(priceRange) > 0 {
			filterClauses = append(filterClauses, map[string]interface{}{
				"range": map[string]interface{}{"price": priceRange},
			})
		}
	}

	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery := map[string]interface{}{"must": mustClauses}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}

	switch filter.Sort {
	case models.SortPriceAsc:
		query["sort"] = []map[string]interface{}{{"price": "asc"}}
	case models.SortPriceDesc:
		query["sort"] = []map[string]interface{}{{"price": "desc"}}
	}

	return query
}

// buildVectorQuery scores documents by cosine similarity against the query
// vector. cosineSimilarity returns [-1,1], so both the score and the
// min_score cutoff are shifted by +1 to stay positive.
func buildVectorQuery(embedding []float32, threshold float64) map[string]interface{} {
	return map[string]interface{}{
		"min_score": threshold + 1.0,
		"query": map[string]interface{}{
			"script_score": map[string]interface{}{
				"query": map[string]interface{}{
					"bool": map[string]interface{}{
						"filter": []interface{}{
							map[string]interface{}{"exists": map[string]interface{}{"field": "embedding"}},
						},
					},
				},
				"script": map[string]interface{}{
					"source": "cosineSimilarity(params.query_vector, 'embedding') + 1.0",
					"params": map[string]interface{}{"query_vector": embedding},
				},
			},
		},
	}
}
