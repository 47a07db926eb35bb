package embedsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-chat/internal/catalog"
	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/genai"
	"catalog-chat/internal/models"
)

type stubSyncStore struct {
	mu       sync.Mutex
	products []models.Product
	listErr  error
	updates  map[string][]float32
	failIDs  map[string]bool
}

func (s *stubSyncStore) Search(ctx context.Context, f catalog.Filter) ([]models.Product, error) {
	return nil, nil
}
func (s *stubSyncStore) VectorSearch(ctx context.Context, e []float32, t float64, l int) ([]models.Product, error) {
	return nil, nil
}
func (s *stubSyncStore) Categories(ctx context.Context) ([]string, error) { return nil, nil }

func (s *stubSyncStore) ProductsForEmbedding(ctx context.Context) ([]models.Product, error) {
	return s.products, s.listErr
}

func (s *stubSyncStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIDs[id] {
		return errors.New("version conflict")
	}
	if s.updates == nil {
		s.updates = map[string][]float32{}
	}
	s.updates[id] = embedding
	return nil
}

type stubEmbedder struct {
	mu       sync.Mutex
	vector   []float32
	err      error
	gotTexts []string
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, task genai.TaskType) ([]float32, error) {
	s.mu.Lock()
	s.gotTexts = append(s.gotTexts, text)
	s.mu.Unlock()
	return s.vector, s.err
}

func timePtr(t time.Time) *time.Time { return &t }

func TestSweepEmbedsOnlyStaleProducts(t *testing.T) {
	now := time.Now()
	store := &stubSyncStore{products: []models.Product{
		{ID: "new", Name: "Abacate", Category: "Frutas", UpdatedAt: now},
		{ID: "stale", Name: "Manga", UpdatedAt: now, EmbeddedAt: timePtr(now.Add(-time.Hour))},
		{ID: "fresh", Name: "Pão", UpdatedAt: now.Add(-time.Hour), EmbeddedAt: timePtr(now)},
	}}
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2}}

	syncer := NewSyncer(store, embedder, 2, logger.NewTestLogger(t))
	stats, err := syncer.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 2, stats.Updated)
	assert.Equal(t, 0, stats.Failed)
	assert.Contains(t, store.updates, "new")
	assert.Contains(t, store.updates, "stale")
	assert.NotContains(t, store.updates, "fresh")
}

func TestSweepBuildsEmbeddingText(t *testing.T) {
	store := &stubSyncStore{products: []models.Product{
		{ID: "p1", Name: "Abacate", Description: "Fruta fresca", Category: "Frutas", Tags: []string{"Vegano"}, UpdatedAt: time.Now()},
	}}
	embedder := &stubEmbedder{vector: []float32{0.1}}

	syncer := NewSyncer(store, embedder, 1, logger.NewTestLogger(t))
	_, err := syncer.Sweep(context.Background())

	require.NoError(t, err)
	require.Len(t, embedder.gotTexts, 1)
	assert.Contains(t, embedder.gotTexts[0], "Categoria: Frutas")
	assert.Contains(t, embedder.gotTexts[0], "Produto: Abacate")
	assert.Contains(t, embedder.gotTexts[0], "Descrição: Fruta fresca")
	assert.Contains(t, embedder.gotTexts[0], "Vegano")
}

func TestSweepToleratesPerItemFailures(t *testing.T) {
	now := time.Now()
	store := &stubSyncStore{
		products: []models.Product{
			{ID: "ok", Name: "A", UpdatedAt: now},
			{ID: "bad", Name: "B", UpdatedAt: now},
		},
		failIDs: map[string]bool{"bad": true},
	}
	embedder := &stubEmbedder{vector: []float32{0.1}}

	syncer := NewSyncer(store, embedder, 2, logger.NewTestLogger(t))
	stats, err := syncer.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Failed)
	assert.Contains(t, store.updates, "ok")
}

func TestSweepEmbedFailureCountsAsFailed(t *testing.T) {
	store := &stubSyncStore{products: []models.Product{
		{ID: "p1", Name: "A", UpdatedAt: time.Now()},
	}}
	embedder := &stubEmbedder{err: genai.ErrEmbeddingFailed}

	syncer := NewSyncer(store, embedder, 1, logger.NewTestLogger(t))
	stats, err := syncer.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 1, stats.Failed)
}

func TestSweepListFailure(t *testing.T) {
	store := &stubSyncStore{listErr: catalog.ErrSearchQueryFailed}

	syncer := NewSyncer(store, &stubEmbedder{}, 1, logger.NewTestLogger(t))
	_, err := syncer.Sweep(context.Background())

	assert.ErrorIs(t, err, catalog.ErrSearchQueryFailed)
}
