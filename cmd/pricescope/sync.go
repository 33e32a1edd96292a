package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oneleo/TokenlonContractAnalysis/internal/config"
	"github.com/oneleo/TokenlonContractAnalysis/internal/indexer"
	"github.com/oneleo/TokenlonContractAnalysis/internal/market"
	"github.com/oneleo/TokenlonContractAnalysis/internal/metrics"
	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
	"github.com/oneleo/TokenlonContractAnalysis/internal/storage"
	"github.com/oneleo/TokenlonContractAnalysis/internal/subgraph"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Backfill or refresh the cached price and trade series",
		RunE:  runSync,
	}

	cmd.Flags().String("graph-url", "", "Tokenlon subgraph URL (or GRAPH_URL)")
	cmd.Flags().String("uniswap-url", "https://api.thegraph.com/subgraphs/name/uniswap/uniswap-v3", "Uniswap V3 subgraph URL, empty disables hourly candles")
	cmd.Flags().StringSlice("candle-symbol", []string{"WETH", "WBTC"}, "token symbols of the hourly candle series (comma-separated)")
	cmd.Flags().String("coingecko-url", "https://api.coingecko.com/api/v3", "CoinGecko API root")
	cmd.Flags().String("coingecko-api-key", "", "CoinGecko demo API key")
	cmd.Flags().StringSlice("coin", []string{"ethereum", "bitcoin"}, "CoinGecko ids to cache (comma-separated)")
	cmd.Flags().Int("lookback-days", 90, "trailing window fetched from every source")
	cmd.Flags().Duration("stale-after", 0, "refresh a cache whose newest row is older than this (default 1h)")
	cmd.Flags().Int("backfill-ceiling", indexer.DefaultBackfillCeiling, "deepest page offset fetched when backfilling")
	cmd.Flags().Int("page-size", subgraph.PageSize, "rows per subgraph page")
	cmd.Flags().Bool("checkpoint-enabled", true, "resume interrupted backfills")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSync(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	rec := metrics.NewRecorder()
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	prices := market.NewClient(
		market.WithHTTPClient(httpClient),
		market.WithBaseURL(cfg.CoinGeckoURL),
		market.WithAPIKey(cfg.CoinGeckoAPIKey),
		market.WithLogger(logger),
		market.WithMetrics(rec),
	)
	trades, err := subgraph.NewClient(cfg.GraphURL,
		subgraph.WithHTTPClient(httpClient),
		subgraph.WithLogger(logger),
		subgraph.WithMetrics(rec),
		subgraph.WithSource("tokenlon"),
	)
	if err != nil {
		return err
	}

	sources := indexer.Sources{Prices: prices, Trades: trades}
	stores := indexer.Stores{
		Prices: storage.NewCSVStore[model.PricePoint](cfg.DataDir, storage.PricePointCodec{}, logger),
		Trades: storage.NewCSVStore[model.TradeRecord](cfg.DataDir, storage.TradeCodec{}, logger),
	}
	if cfg.UniswapURL != "" {
		candles, err := subgraph.NewClient(cfg.UniswapURL,
			subgraph.WithHTTPClient(httpClient),
			subgraph.WithLogger(logger),
			subgraph.WithMetrics(rec),
			subgraph.WithSource("uniswap"),
		)
		if err != nil {
			return err
		}
		sources.Candles = candles
		stores.Candles = storage.NewCSVStore[model.HourCandle](cfg.DataDir, storage.HourCandleCodec{}, logger)
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		CoinIDs:           cfg.CoinIDs,
		LookbackDays:      cfg.LookbackDays,
		StaleAfter:        cfg.StaleAfter,
		BackfillCeiling:   cfg.BackfillCeiling,
		PageSize:          cfg.PageSize,
		CandleSymbols:     cfg.CandleSymbols,
		CheckpointDir:     cfg.DataDir,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, sources, stores, logger, rec)

	logger.Info("sync start",
		zap.String("data_dir", cfg.DataDir),
		zap.Strings("coins", cfg.CoinIDs),
		zap.Int("lookback_days", cfg.LookbackDays),
		zap.Duration("stale_after", cfg.StaleAfter),
		zap.Int("backfill_ceiling", cfg.BackfillCeiling),
		zap.Bool("candles", sources.Candles != nil),
		zap.Strings("candle_symbols", cfg.CandleSymbols),
	)

	return finish(logger, rec, cfg.MetricsFile, runner.Run(ctx))
}
