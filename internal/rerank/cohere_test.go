package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ragcompare/internal/domain"
)

var _ domain.Reranker = (*CohereClient)(nil)

func newTestClient(t *testing.T, handler http.HandlerFunc) *CohereClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewCohereClient(Config{APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewCohereClientRequiresKey(t *testing.T) {
	t.Parallel()
	_, err := NewCohereClient(Config{}, zap.NewNop())
	require.Error(t, err)
}

func TestRerankSuccess(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/rerank", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "which doc", req.Query)
		assert.Equal(t, 2, req.TopN)

		w.Write([]byte(`{"results":[
			{"index":2,"relevance_score":0.95},
			{"index":0,"relevance_score":0.31}
		]}`))
	})

	results, err := c.Rerank(context.Background(), "which doc", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Index)
	assert.InDelta(t, 0.95, results[0].RelevanceScore, 1e-9)
	assert.Equal(t, 0, results[1].Index)
}

func TestRerankClampsTopNToDocumentCount(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.TopN)
		w.Write([]byte(`{"results":[{"index":0,"relevance_score":0.5}]}`))
	})

	_, err := c.Rerank(context.Background(), "q", []string{"a", "b"}, 10)
	require.NoError(t, err)
}

func TestRerankEmptyDocuments(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty documents")
	})

	results, err := c.Rerank(context.Background(), "q", nil, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRerankHTTPError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api token"}`, http.StatusUnauthorized)
	})

	_, err := c.Rerank(context.Background(), "q", []string{"a"}, 1)
	require.Error(t, err)

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "cohere", pe.Provider)
}

func TestRerankRejectsOversizedResultSet(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[
			{"index":0,"relevance_score":0.9},
			{"index":1,"relevance_score":0.8},
			{"index":2,"relevance_score":0.7}
		]}`))
	})

	_, err := c.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 1)
	require.Error(t, err, "more results than top_n is a malformed response")

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "cohere", pe.Provider)
}

func TestRerankOutOfRangeIndex(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"index":7,"relevance_score":0.5}]}`))
	})

	_, err := c.Rerank(context.Background(), "q", []string{"a", "b"}, 1)
	require.Error(t, err)

	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
}
