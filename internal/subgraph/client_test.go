package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

const tradePageResponse = `{"data": {
	"swappeds": [
		{"id": "s-0x03-0", "blockNumber": "30", "timestamp": "300", "makerAssetAddr": "0xAA", "settleAmount": "1", "takerAssetAddr": "0xBB", "takerAssetAmount": "2"},
		{"id": "s-0x01-0", "blockNumber": "10", "timestamp": "100", "makerAssetAddr": "0xAA", "settleAmount": "1", "takerAssetAddr": "0xBB", "takerAssetAmount": "2"}
	],
	"fillOrders": [
		{"id": "f-0x02-0", "blockNumber": "20", "timestamp": "200", "makerAssetAddr": "0xAA", "settleAmount": "1", "takerAssetAddr": "0xBB", "takerAssetAmount": "2"}
	],
	"limitOrders": [
		{"id": "l-0x04-0", "blockNumber": "40", "blockTimestamp": "250", "makerToken": "0xAA", "makerTokenFilledAmount": "1", "takerToken": "0xBB", "takerTokenFilledAmount": "2", "limitOrderType": "ByCoordinator"}
	]
}}`

func TestFetchTradePageMergesAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, strings.Contains(req.Query, "skip: 0"))
		_, _ = w.Write([]byte(tradePageResponse))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	page, err := client.FetchTradePage(context.Background(), 0, 0)
	require.NoError(t, err)

	var ts []int64
	var methods []string
	for _, tr := range page.Trades {
		ts = append(ts, tr.Timestamp)
		methods = append(methods, tr.Method)
	}
	assert.Equal(t, []int64{100, 200, 250, 300}, ts)
	assert.Equal(t, []string{model.MethodAMM, model.MethodPMMOrRFQ, "ByCoordinator", model.MethodAMM}, methods)
	assert.Equal(t, map[string]int{"swappeds": 2, "fillOrders": 1, "limitOrders": 1}, page.Counts)
	assert.False(t, page.Full())
}

func TestFetchTradePageGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"indexing error"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.FetchTradePage(context.Background(), 0, 0)
	assert.True(t, errors.Is(err, model.ErrUpstreamFetch), "got %v", err)
}

func TestFetchTradePageMissingEntity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"swappeds":[]}}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.FetchTradePage(context.Background(), 0, 0)
	assert.True(t, errors.Is(err, model.ErrSchemaMismatch), "got %v", err)
}

func TestFetchTradePageHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithSource("tokenlon"))
	require.NoError(t, err)

	_, err = client.FetchTradePage(context.Background(), 0, 0)
	assert.True(t, errors.Is(err, model.ErrUpstreamFetch), "got %v", err)
	assert.Contains(t, err.Error(), "tokenlon")
}

func TestFetchTokenHourPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, `symbol: "WETH"`)
		_, _ = w.Write([]byte(`{"data":{"tokenHourDatas":[
			{"id":"0xc02a-466201","periodStartUnix":1678327200,"open":"1530.1","high":"1540","low":"1520","close":"1535.5"},
			{"id":"0xc02a-466200","periodStartUnix":1678323600,"open":"1525","high":"1531","low":"1519","close":"1530.1"}
		]}}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	candles, err := client.FetchTokenHourPage(context.Background(), "WETH", 0, 0)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1678323600), candles[0].Timestamp)
	assert.Equal(t, "0xc02a", candles[0].ID)
	assert.Equal(t, "1535.5", candles[1].Close)
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(" ")
	assert.Error(t, err)
}
