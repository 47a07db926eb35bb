package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/common/observability"
	"catalog-chat/internal/intent"
	"catalog-chat/internal/models"
	"catalog-chat/internal/pipeline"
	"catalog-chat/internal/retrieval"
)

type stubExtractor struct {
	result intent.Result
}

func (s *stubExtractor) Extract(ctx context.Context, message string, history []models.ConversationTurn, categories []string) intent.Result {
	return s.result
}

type stubRetriever struct {
	result retrieval.Result
	err    error
}

func (s *stubRetriever) Retrieve(ctx context.Context, it models.Intent, message string) (retrieval.Result, error) {
	return s.result, s.err
}

type stubMemory struct {
	sessions chan string
}

func (s *stubMemory) Append(ctx context.Context, sessionID string, role models.Role, content string) error {
	select {
	case s.sessions <- sessionID:
	default:
	}
	return nil
}

func (s *stubMemory) Recent(ctx context.Context, sessionID string, n int) []models.ConversationTurn {
	return nil
}

type stubCategories struct{}

func (s *stubCategories) List(ctx context.Context) []string { return []string{"Frutas"} }

func newTestServer(t *testing.T, extractor *stubExtractor, memory *stubMemory) *Server {
	t.Helper()
	log := logger.NewTestLogger(t)
	term := "Abacate"
	if extractor.result.Outcome == "" {
		extractor.result = intent.Result{
			Outcome: intent.OutcomeOK,
			Intent: models.Intent{
				Kind:  models.IntentSearchProduct,
				Term:  &term,
				Page:  1,
				Reply: "Busquei por abacate.",
			},
		}
	}
	retriever := &stubRetriever{result: retrieval.Result{
		Products: []models.Product{{ID: "p1", Name: "Abacate", Price: 8.5}},
		HasMore:  false,
	}}
	p := pipeline.New(extractor, retriever, memory, &stubCategories{}, 5, log)
	return New(p, &observability.Observability{}, log)
}

func postQuery(t *testing.T, mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestQueryEndpoint(t *testing.T) {
	memory := &stubMemory{sessions: make(chan string, 2)}
	srv := newTestServer(t, &stubExtractor{}, memory)

	rec := postQuery(t, srv.Routes(), `{"session_id": "sess-1", "message": "Quero abacate"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "search_product: Abacate (p1)", resp.InterpretedQuery)
	assert.Contains(t, resp.Reply, "Busquei por abacate.")
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Abacate", resp.Products[0].Name)
}

func TestQueryGeneratesSessionID(t *testing.T) {
	memory := &stubMemory{sessions: make(chan string, 2)}
	srv := newTestServer(t, &stubExtractor{}, memory)

	rec := postQuery(t, srv.Routes(), `{"message": "Quero abacate"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := <-memory.sessions
	_, err := uuid.Parse(sessionID)
	assert.NoError(t, err, "generated session id should be a UUID")
}

func TestQueryRejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(t, &stubExtractor{}, &stubMemory{sessions: make(chan string, 2)})

	rec := postQuery(t, srv.Routes(), `{"session_id": "s"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t, &stubExtractor{}, &stubMemory{sessions: make(chan string, 2)})

	rec := postQuery(t, srv.Routes(), `{"message": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryRejectsGet(t *testing.T) {
	srv := newTestServer(t, &stubExtractor{}, &stubMemory{sessions: make(chan string, 2)})

	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestQueryBusyResponse(t *testing.T) {
	extractor := &stubExtractor{result: intent.Result{Outcome: intent.OutcomeBusy}}
	srv := newTestServer(t, extractor, &stubMemory{sessions: make(chan string, 2)})

	rec := postQuery(t, srv.Routes(), `{"session_id": "s", "message": "oi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.ServerBusy)
	assert.Empty(t, resp.Products)
}

func TestQueryReportsInternalError(t *testing.T) {
	log := logger.NewTestLogger(t)
	term := "Abacate"
	extractor := &stubExtractor{result: intent.Result{
		Outcome: intent.OutcomeOK,
		Intent:  models.Intent{Kind: models.IntentSearchProduct, Term: &term, Page: 1},
	}}
	retriever := &stubRetriever{err: assert.AnError}
	p := pipeline.New(extractor, retriever, &stubMemory{sessions: make(chan string, 2)}, &stubCategories{}, 5, log)
	srv := New(p, &observability.Observability{}, log)

	rec := postQuery(t, srv.Routes(), `{"session_id": "s", "message": "abacate"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubExtractor{}, &stubMemory{sessions: make(chan string, 2)})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
