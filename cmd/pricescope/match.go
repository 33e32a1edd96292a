package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oneleo/TokenlonContractAnalysis/internal/chain"
	"github.com/oneleo/TokenlonContractAnalysis/internal/config"
	"github.com/oneleo/TokenlonContractAnalysis/internal/indexer"
	"github.com/oneleo/TokenlonContractAnalysis/internal/metrics"
	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
	"github.com/oneleo/TokenlonContractAnalysis/internal/pricing"
	"github.com/oneleo/TokenlonContractAnalysis/internal/reconcile"
	"github.com/oneleo/TokenlonContractAnalysis/internal/render"
	"github.com/oneleo/TokenlonContractAnalysis/internal/storage"
	"github.com/oneleo/TokenlonContractAnalysis/internal/token"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Price cached trades and match them to the nearest reference price",
		RunE:  runMatch,
	}

	cmd.Flags().String("base", "ethereum", "base asset symbol")
	cmd.Flags().String("quote", "tether", "quote asset symbol")
	cmd.Flags().StringSlice("side", []string{"sell", "buy"}, "sides to reconcile (sell, buy)")
	cmd.Flags().String("reference", "coingecko", "reference series (coingecko or uniswap)")
	cmd.Flags().Float64("min-quote", 0, "only keep trades whose quote amount is above this")
	cmd.Flags().Bool("large", false, "shorthand for --min-quote=5000")
	cmd.Flags().String("from", "", "chart window start (unix seconds or RFC3339)")
	cmd.Flags().String("to", "", "chart window end (unix seconds or RFC3339)")
	cmd.Flags().Float64("std-n", 2, "standard deviations used for chart bounds and outliers")
	cmd.Flags().String("assets", "", "asset table YAML, default built in")
	cmd.Flags().String("rpc", "", "Ethereum RPC URL for decimals lookups (or ETHEREUM_NODE_URL)")
	cmd.Flags().String("out-dir", "./data/charts", "chart output directory")
	cmd.Flags().String("out", "./data/matched_trades.jsonl", "matched trades JSONL, empty disables")

	return cmd
}

func runMatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMatch(cfgFile, cmd.Flags())
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
	return finish(logger, rec, cfg.MetricsFile, reconcileCaches(ctx, cfg, logger, rec))
}

func reconcileCaches(ctx context.Context, cfg config.MatchConfig, logger *zap.Logger, rec *metrics.Recorder) error {
	pair, err := loadPair(ctx, cfg, logger)
	if err != nil {
		return err
	}

	trades, err := storage.NewCSVStore[model.TradeRecord](cfg.DataDir, storage.TradeCodec{}, logger).Load(indexer.TradeKey)
	if err != nil {
		return err
	}
	ref, err := loadReference(cfg, pair, logger)
	if err != nil {
		return err
	}

	sides := make([]pricing.Side, 0, len(cfg.Sides))
	for _, s := range cfg.Sides {
		sides = append(sides, pricing.Side(s))
	}

	logRenderer := render.NewLogRenderer(logger)
	logRenderer.StdN = cfg.StdN
	renderer := render.Multi{render.NewCSVRenderer(cfg.OutDir), logRenderer}
	var sink reconcile.MatchedSink
	if cfg.Out != "" {
		sink = storage.NewJsonlStorage(cfg.Out)
	}

	logger.Info("match start",
		zap.String("pair", pair.String()),
		zap.Strings("sides", cfg.Sides),
		zap.String("reference", cfg.Reference),
		zap.Int("trades", len(trades)),
		zap.Int("reference_points", len(ref)),
		zap.Float64("min_quote", cfg.MinQuote),
	)

	results, err := reconcile.New(renderer, sink, logger).Run(trades, ref, reconcile.Options{
		Pair:          pair,
		Sides:         sides,
		MinQuote:      cfg.MinQuote,
		From:          cfg.From,
		To:            cfg.To,
		StdN:          cfg.StdN,
		ReferenceName: cfg.Reference,
	})
	if err != nil {
		return err
	}
	for _, res := range results {
		rec.AddRows(reconcile.ChartName(pair, res.Side, cfg.MinQuote), "matched", len(res.Matched))
	}
	return nil
}

func loadPair(ctx context.Context, cfg config.MatchConfig, logger *zap.Logger) (pricing.Pair, error) {
	reg, err := pricing.LoadRegistry(cfg.AssetsFile)
	if err != nil {
		return pricing.Pair{}, err
	}
	if reg.NeedsLookup() {
		var lookup pricing.DecimalsLookup
		if cfg.RPCURL != "" {
			chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
			if err != nil {
				return pricing.Pair{}, fmt.Errorf("connect rpc: %w", err)
			}
			defer chainClient.Close()
			lookup = token.NewResolver(chainClient, logger)
		}
		if err := reg.ResolveDecimals(ctx, lookup); err != nil {
			return pricing.Pair{}, err
		}
	}

	base, err := reg.Get(cfg.Base)
	if err != nil {
		return pricing.Pair{}, err
	}
	quote, err := reg.Get(cfg.Quote)
	if err != nil {
		return pricing.Pair{}, err
	}
	pair := pricing.Pair{Base: base, Quote: quote}
	return pair, pair.Validate()
}

func loadReference(cfg config.MatchConfig, pair pricing.Pair, logger *zap.Logger) ([]model.ReferencePrice, error) {
	switch cfg.Reference {
	case "uniswap":
		symbol, err := reconcile.CandleSymbol(pair)
		if err != nil {
			return nil, err
		}
		candles, err := storage.NewCSVStore[model.HourCandle](cfg.DataDir, storage.HourCandleCodec{}, logger).Load(indexer.CandleKey(symbol))
		if err != nil {
			return nil, err
		}
		return reconcile.CandlePrices(candles)
	default:
		if pair.Base.CoinGeckoID == "" {
			return nil, fmt.Errorf("asset %s has no coingecko id", pair.Base.Symbol)
		}
		points, err := storage.NewCSVStore[model.PricePoint](cfg.DataDir, storage.PricePointCodec{}, logger).Load(indexer.PriceKey(pair.Base.CoinGeckoID))
		if err != nil {
			return nil, err
		}
		return model.NormalizePrices(points), nil
	}
}
