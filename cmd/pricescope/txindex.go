package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oneleo/TokenlonContractAnalysis/internal/analysis"
	"github.com/oneleo/TokenlonContractAnalysis/internal/chain"
	"github.com/oneleo/TokenlonContractAnalysis/internal/config"
	"github.com/oneleo/TokenlonContractAnalysis/internal/indexer"
	"github.com/oneleo/TokenlonContractAnalysis/internal/metrics"
	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
	"github.com/oneleo/TokenlonContractAnalysis/internal/render"
	"github.com/oneleo/TokenlonContractAnalysis/internal/storage"
	"github.com/oneleo/TokenlonContractAnalysis/internal/txindex"
)

const txIndexKey = "tokenlon_transaction_index"

func newTxIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "txindex",
		Short: "Record the in-block position of recent Tokenlon transactions",
		RunE:  runTxIndex,
	}

	cmd.Flags().String("rpc", "", "Ethereum RPC URL (or ETHEREUM_NODE_URL)")
	cmd.Flags().Int("days", 3, "only trades from the last N days")
	cmd.Flags().Uint64("bin-width", 40, "histogram bin width")
	cmd.Flags().String("out-dir", "./data/charts", "chart output directory")

	return cmd
}

func runTxIndex(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTxIndex(cfgFile, cmd.Flags())
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
	txStore := storage.NewCSVStore[model.TxIndexRecord](cfg.DataDir, storage.TxIndexCodec{}, logger)

	var records []model.TxIndexRecord
	if txStore.Exists(txIndexKey) {
		logger.Info("tx index cache present, skipping lookups", zap.String("path", txStore.Path(txIndexKey)))
		records, err = txStore.Load(txIndexKey)
		if err != nil {
			return finish(logger, rec, cfg.MetricsFile, err)
		}
	} else {
		trades, err := storage.NewCSVStore[model.TradeRecord](cfg.DataDir, storage.TradeCodec{}, logger).Load(indexer.TradeKey)
		if err != nil {
			return finish(logger, rec, cfg.MetricsFile, err)
		}

		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return finish(logger, rec, cfg.MetricsFile, fmt.Errorf("connect rpc: %w", err))
		}
		defer chainClient.Close()

		since := time.Now().Add(-time.Duration(cfg.Days) * 24 * time.Hour).Unix()
		start := time.Now()
		records, err = txindex.Build(ctx, trades, since, chainClient, logger)
		rec.ObserveFetch("rpc", start, err)
		if err != nil {
			return finish(logger, rec, cfg.MetricsFile, err)
		}
		if err := txStore.WriteFull(txIndexKey, records); err != nil {
			return finish(logger, rec, cfg.MetricsFile, err)
		}
		rec.AddRows(txIndexKey, "full", len(records))
	}

	bins := analysis.Histogram(txindex.Indexes(records), cfg.BinWidth)
	for _, bin := range bins {
		logger.Info("tx index bin",
			zap.Int64("lower", bin.Lower),
			zap.Uint64("upper", uint64(bin.Lower)+cfg.BinWidth),
			zap.Int("count", bin.Count),
		)
	}

	series := render.Series{Name: "tx_index"}
	for _, r := range records {
		series.Points = append(series.Points, analysis.Point{Timestamp: r.Timestamp, Value: float64(r.Index)})
	}
	renderer := render.Multi{render.NewCSVRenderer(cfg.OutDir), render.NewLogRenderer(logger)}
	return finish(logger, rec, cfg.MetricsFile, renderer.Render(txIndexKey, series))
}
