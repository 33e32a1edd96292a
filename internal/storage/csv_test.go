package storage

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

func newPriceStore(t *testing.T) *CSVStore[model.PricePoint] {
	t.Helper()
	return NewCSVStore[model.PricePoint](t.TempDir(), PricePointCodec{}, nil)
}

func TestCSVStoreMissingKey(t *testing.T) {
	store := newPriceStore(t)

	assert.False(t, store.Exists("eth_usd_price"))

	last, err := store.LastTimestamp("eth_usd_price")
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)

	_, err = store.AppendNew("eth_usd_price", []model.PricePoint{{TimestampMs: 1, Price: 1}})
	assert.True(t, errors.Is(err, model.ErrStoreUnavailable), "got %v", err)

	_, err = store.Load("eth_usd_price")
	assert.True(t, errors.Is(err, model.ErrStoreUnavailable), "got %v", err)
}

func TestCSVStoreWriteFullAndLastTimestamp(t *testing.T) {
	store := newPriceStore(t)
	rows := []model.PricePoint{
		{TimestampMs: 1000, Price: 1.5},
		{TimestampMs: 2000, Price: 2.5},
	}

	require.NoError(t, store.WriteFull("eth_usd_price", rows))
	assert.True(t, store.Exists("eth_usd_price"))

	last, err := store.LastTimestamp("eth_usd_price")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), last)

	loaded, err := store.Load("eth_usd_price")
	require.NoError(t, err)
	assert.Equal(t, rows, loaded)

	data, err := os.ReadFile(store.Path("eth_usd_price"))
	require.NoError(t, err)
	assert.Equal(t, "Timestamp,Price\n1000,1.5\n2000,2.5\n", string(data))
}

func TestCSVStoreHeaderOnlyCache(t *testing.T) {
	store := newPriceStore(t)
	require.NoError(t, store.WriteFull("empty", nil))

	last, err := store.LastTimestamp("empty")
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)

	n, err := store.AppendNew("empty", []model.PricePoint{{TimestampMs: 5, Price: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCSVStoreAppendNewIsIdempotent(t *testing.T) {
	store := newPriceStore(t)
	require.NoError(t, store.WriteFull("btc_usd_price", []model.PricePoint{
		{TimestampMs: 1000, Price: 1},
		{TimestampMs: 2000, Price: 2},
	}))

	candidates := []model.PricePoint{
		{TimestampMs: 1500, Price: 9},
		{TimestampMs: 2000, Price: 9},
		{TimestampMs: 3000, Price: 3},
		{TimestampMs: 4000, Price: 4},
	}

	n, err := store.AppendNew("btc_usd_price", candidates)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	once, err := os.ReadFile(store.Path("btc_usd_price"))
	require.NoError(t, err)

	n, err = store.AppendNew("btc_usd_price", candidates)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	twice, err := os.ReadFile(store.Path("btc_usd_price"))
	require.NoError(t, err)
	assert.Equal(t, string(once), string(twice))

	loaded, err := store.Load("btc_usd_price")
	require.NoError(t, err)
	assert.Equal(t, []model.PricePoint{
		{TimestampMs: 1000, Price: 1},
		{TimestampMs: 2000, Price: 2},
		{TimestampMs: 3000, Price: 3},
		{TimestampMs: 4000, Price: 4},
	}, loaded)
}

func TestCSVStoreAppendPageCreatesHeaderOnce(t *testing.T) {
	store := NewCSVStore[model.TradeRecord](t.TempDir(), TradeCodec{}, nil)

	first := []model.TradeRecord{{ID: "a-0x1-0", BlockNumber: 10, Timestamp: 300, MakerToken: "0xaa", MakerAmount: "1", TakerToken: "0xbb", TakerAmount: "2", Method: model.MethodAMM}}
	second := []model.TradeRecord{{ID: "b-0x2-0", BlockNumber: 9, Timestamp: 100, MakerToken: "0xAA", MakerAmount: "3", TakerToken: "0xBB", TakerAmount: "4", Method: model.MethodPMMOrRFQ}}

	require.NoError(t, store.AppendPage("tokenlon_subgraph", first))
	require.NoError(t, store.AppendPage("tokenlon_subgraph", second))

	loaded, err := store.Load("tokenlon_subgraph")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "a-0x1-0", loaded[0].ID)
	assert.Equal(t, "0xaa", loaded[1].MakerToken, "tokens are lower-cased on read")

	last, err := store.LastTimestamp("tokenlon_subgraph")
	require.NoError(t, err)
	assert.Equal(t, int64(100), last, "last row wins, not the maximum")
}

func TestCSVStoreRejectsForeignHeader(t *testing.T) {
	dir := t.TempDir()
	store := NewCSVStore[model.PricePoint](dir, PricePointCodec{}, nil)
	require.NoError(t, os.WriteFile(store.Path("x"), []byte("Time,Value\n1,2\n"), 0o644))

	_, err := store.Load("x")
	assert.Error(t, err)
}

func TestPricePointCodecAcceptsFloatTimestamps(t *testing.T) {
	p, err := PricePointCodec{}.Decode([]string{"1679270400000.0", "1780.25"})
	require.NoError(t, err)
	assert.Equal(t, int64(1679270400000), p.TimestampMs)
	assert.Equal(t, 1780.25, p.Price)
}
