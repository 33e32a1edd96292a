package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

func TestFetchPricesParsesMarketChart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/ethereum/market_chart", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "90", r.URL.Query().Get("days"))
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(`{"prices":[[1679274000000,1782.25],[1679270400000,1780.5]],"market_caps":[],"total_volumes":[]}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithAPIKey("demo-key"))
	points, err := client.FetchPrices(context.Background(), "ethereum", 0)
	require.NoError(t, err)

	assert.Equal(t, []model.PricePoint{
		{TimestampMs: 1679270400000, Price: 1780.5},
		{TimestampMs: 1679274000000, Price: 1782.25},
	}, points)
}

func TestFetchPricesHTTPErrorIsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":{"error_code":429,"error_message":"throttled"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).FetchPrices(context.Background(), "bitcoin", 90)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUpstreamFetch), "got %v", err)
}

func TestFetchPricesMalformedPairIsSchemaMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"prices":[[1679270400000]]}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).FetchPrices(context.Background(), "bitcoin", 90)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSchemaMismatch), "got %v", err)
}

func TestFetchPricesMissingPricesIsSchemaMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"coin not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).FetchPrices(context.Background(), "nope", 90)
	assert.True(t, errors.Is(err, model.ErrSchemaMismatch), "got %v", err)
}
