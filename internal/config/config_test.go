package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSyncDefaultsAndAlias(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	t.Setenv("GRAPH_URL", "https://graph.example/tokenlon")

	cfg, err := LoadSync("", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://graph.example/tokenlon", cfg.GraphURL)
	assert.Equal(t, []string{"ethereum", "bitcoin"}, cfg.CoinIDs)
	assert.Equal(t, time.Hour, cfg.StaleAfter)
	assert.Equal(t, 5000, cfg.BackfillCeiling)
	assert.Equal(t, 1000, cfg.PageSize)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, []string{"WETH", "WBTC"}, cfg.CandleSymbols)
}

func TestLoadSyncRequiresGraphURL(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	t.Setenv("GRAPH_URL", "")
	_, err := LoadSync("", nil)
	assert.Error(t, err)
}

func TestLoadSyncFlagsOverrideFile(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph-url: https://file.example\ncoin: [ethereum]\nstale-after: 30m\n"), 0o644))

	flags := pflag.NewFlagSet("sync", pflag.ContinueOnError)
	flags.Int("max-retries", 0, "")
	require.NoError(t, flags.Parse([]string{"--max-retries=3"}))

	cfg, err := LoadSync(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example", cfg.GraphURL)
	assert.Equal(t, []string{"ethereum"}, cfg.CoinIDs)
	assert.Equal(t, 30*time.Minute, cfg.StaleAfter)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestLoadMatch(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	flags := pflag.NewFlagSet("match", pflag.ContinueOnError)
	flags.Bool("large", false, "")
	flags.String("from", "", "")
	flags.StringSlice("side", nil, "")
	require.NoError(t, flags.Parse([]string{"--large", "--from=2023-11-14T00:00:00Z", "--side=sell"}))

	cfg, err := LoadMatch("", flags)
	require.NoError(t, err)
	assert.Equal(t, float64(LargeTradeQuote), cfg.MinQuote)
	assert.Equal(t, int64(1699920000), cfg.From)
	assert.Equal(t, []string{"sell"}, cfg.Sides)
	assert.Equal(t, "coingecko", cfg.Reference)
}

func TestLoadMatchRejectsBadSide(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	t.Setenv("PRICESCOPE_SIDE", "hold")
	_, err := LoadMatch("", nil)
	assert.Error(t, err)
}

func TestLoadTxIndexAlias(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	t.Setenv("ETHEREUM_NODE_URL", "http://node.example:8545")
	cfg, err := LoadTxIndex("", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://node.example:8545", cfg.RPCURL)
	assert.Equal(t, 3, cfg.Days)
	assert.Equal(t, uint64(40), cfg.BinWidth)
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("1700000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got)

	got, err = ParseTimestamp("2023-11-14T22:13:20Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got)

	got, err = ParseTimestamp(" ")
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestGetStringSliceFromEnv(t *testing.T) {
	t.Setenv("NO_DOTENV", "1")
	t.Setenv("GRAPH_URL", "https://graph.example")
	t.Setenv("PRICESCOPE_COIN", "ethereum, bitcoin ,")
	cfg, err := LoadSync("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ethereum", "bitcoin"}, cfg.CoinIDs)
}
