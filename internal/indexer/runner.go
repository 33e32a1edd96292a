package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oneleo/TokenlonContractAnalysis/internal/metrics"
	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
	"github.com/oneleo/TokenlonContractAnalysis/internal/storage"
	"github.com/oneleo/TokenlonContractAnalysis/internal/subgraph"
)

// Default cache key and backfill depth.
const (
	TradeKey = "tokenlon_subgraph"

	DefaultBackfillCeiling = 5000
)

// PriceKey returns the cache key of a CoinGecko USD series.
func PriceKey(coinID string) string {
	return coinID + "_usd_price"
}

// CandleKey returns the cache key of the Uniswap hourly series of symbol,
// e.g. "uniswap3_weth_subgraph".
func CandleKey(symbol string) string {
	return "uniswap3_" + strings.ToLower(symbol) + "_subgraph"
}

// PriceSource fetches a reference price series.
type PriceSource interface {
	FetchPrices(ctx context.Context, coinID string, days int) ([]model.PricePoint, error)
}

// TradeSource fetches one page of exchange trades.
type TradeSource interface {
	FetchTradePage(ctx context.Context, gteTimestamp int64, skip int) (subgraph.TradePage, error)
}

// CandleSource fetches one page of hourly candles for a token.
type CandleSource interface {
	FetchTokenHourPage(ctx context.Context, symbol string, gteTimestamp int64, skip int) ([]model.HourCandle, error)
}

// RunConfig holds runtime settings for a sync.
type RunConfig struct {
	CoinIDs           []string
	LookbackDays      int
	StaleAfter        time.Duration
	BackfillCeiling   int
	PageSize          int
	CandleSymbols     []string
	CheckpointDir     string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	Now               func() time.Time
}

// Sources are the upstreams a Runner pulls from. Candles is optional.
type Sources struct {
	Prices  PriceSource
	Trades  TradeSource
	Candles CandleSource
}

// Stores are the caches a Runner writes to.
type Stores struct {
	Prices  storage.SeriesStore[model.PricePoint]
	Trades  storage.SeriesStore[model.TradeRecord]
	Candles storage.SeriesStore[model.HourCandle]
}

// Runner brings every cached series up to date: a missing cache is
// backfilled, a stale one gets its newest rows appended.
type Runner struct {
	cfg     RunConfig
	sources Sources
	stores  Stores
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, sources Sources, stores Stores, logger *zap.Logger, rec *metrics.Recorder) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = time.Hour
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 90
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = subgraph.PageSize
	}
	return &Runner{
		cfg:     cfg,
		sources: sources,
		stores:  stores,
		logger:  logger,
		metrics: rec,
	}
}

// Run syncs the reference prices, then the trades, then the candles.
func (r *Runner) Run(ctx context.Context) error {
	if r.sources.Prices == nil || r.stores.Prices == nil {
		return fmt.Errorf("price source and store are required")
	}
	if r.sources.Trades == nil || r.stores.Trades == nil {
		return fmt.Errorf("trade source and store are required")
	}

	for _, coinID := range r.cfg.CoinIDs {
		if err := r.SyncPrices(ctx, coinID); err != nil {
			return fmt.Errorf("sync %s prices: %w", coinID, err)
		}
	}
	if err := r.SyncTrades(ctx); err != nil {
		return fmt.Errorf("sync trades: %w", err)
	}
	if r.sources.Candles != nil && r.stores.Candles != nil {
		for _, symbol := range r.cfg.CandleSymbols {
			if err := r.SyncCandles(ctx, symbol); err != nil {
				return fmt.Errorf("sync %s candles: %w", symbol, err)
			}
		}
	}
	return nil
}

// SyncPrices refreshes one CoinGecko series. The cache keeps the source's
// millisecond timestamps; staleness is judged in seconds.
func (r *Runner) SyncPrices(ctx context.Context, coinID string) error {
	key := PriceKey(coinID)
	store := r.stores.Prices
	now := r.cfg.Now()

	exists := store.Exists(key)
	if exists {
		lastMs, err := store.LastTimestamp(key)
		if err != nil {
			return err
		}
		if !IsStale(model.MillisToSeconds(lastMs), now, r.cfg.StaleAfter) {
			r.logger.Info("cache fresh", zap.String("key", key), zap.Int64("last_timestamp_ms", lastMs))
			return nil
		}
	}

	points, err := r.fetchPrices(ctx, coinID)
	if err != nil {
		return err
	}

	if !exists {
		if err := store.WriteFull(key, points); err != nil {
			return err
		}
		r.metrics.AddRows(key, "full", len(points))
		r.logger.Info("cache created", zap.String("key", key), zap.Int("rows", len(points)))
		return nil
	}

	n, err := store.AppendNew(key, points)
	if err != nil {
		return err
	}
	r.metrics.AddRows(key, "append", n)
	r.logger.Info("cache refreshed", zap.String("key", key), zap.Int("rows", n))
	return nil
}

// SyncTrades backfills or refreshes the exchange trade cache.
func (r *Runner) SyncTrades(ctx context.Context) error {
	return syncPaged(ctx, r, pagedSeries[model.TradeRecord]{
		key:   TradeKey,
		store: r.stores.Trades,
		fetch: func(ctx context.Context, gte int64, skip int) ([]model.TradeRecord, bool, error) {
			page, err := r.sources.Trades.FetchTradePage(ctx, gte, skip)
			if err != nil {
				return nil, false, err
			}
			return page.Trades, page.Full(), nil
		},
		id:        func(t model.TradeRecord) string { return t.ID },
		timestamp: func(t model.TradeRecord) int64 { return t.Timestamp },
	})
}

// SyncCandles backfills or refreshes the hourly candle cache of symbol.
// Candle ids name the token, not the hour, so rows are keyed by period start.
func (r *Runner) SyncCandles(ctx context.Context, symbol string) error {
	return syncPaged(ctx, r, pagedSeries[model.HourCandle]{
		key:   CandleKey(symbol),
		store: r.stores.Candles,
		fetch: func(ctx context.Context, gte int64, skip int) ([]model.HourCandle, bool, error) {
			candles, err := r.sources.Candles.FetchTokenHourPage(ctx, symbol, gte, skip)
			if err != nil {
				return nil, false, err
			}
			return candles, len(candles) >= r.cfg.PageSize, nil
		},
		id:        func(c model.HourCandle) string { return strconv.FormatInt(c.Timestamp, 10) },
		timestamp: func(c model.HourCandle) int64 { return c.Timestamp },
	})
}

type pagedSeries[T any] struct {
	key       string
	store     storage.SeriesStore[T]
	fetch     func(ctx context.Context, gte int64, skip int) (rows []T, full bool, err error)
	id        func(T) string
	timestamp func(T) int64
}

func syncPaged[T any](ctx context.Context, r *Runner, s pagedSeries[T]) error {
	checkpoint := NewCheckpointStore(filepath.Join(r.cfg.CheckpointDir, s.key+".backfill.json"), r.cfg.CheckpointEnabled)
	cp, resuming, err := checkpoint.Load()
	if err != nil {
		return err
	}
	if resuming && (cp.Key != s.key || !s.store.Exists(s.key)) {
		r.logger.Warn("discarding unusable backfill checkpoint", zap.String("key", s.key), zap.String("checkpoint_key", cp.Key))
		resuming = false
	}

	if resuming || !s.store.Exists(s.key) {
		return backfill(ctx, r, s, checkpoint, cp, resuming)
	}

	last, err := s.store.LastTimestamp(s.key)
	if err != nil {
		return err
	}
	if !IsStale(last, r.cfg.Now(), r.cfg.StaleAfter) {
		r.logger.Info("cache fresh", zap.String("key", s.key), zap.Int64("last_timestamp", last))
		return nil
	}

	rows, _, err := fetchPage(ctx, r, s, r.gteTimestamp(), 0)
	if err != nil {
		return err
	}
	n, err := s.store.AppendNew(s.key, rows)
	if err != nil {
		return err
	}
	r.metrics.AddRows(s.key, "append", n)
	r.logger.Info("cache refreshed", zap.String("key", s.key), zap.Int("fetched", len(rows)), zap.Int("rows", n))
	return nil
}

func backfill[T any](ctx context.Context, r *Runner, s pagedSeries[T], checkpoint *CheckpointStore, cp Checkpoint, resuming bool) error {
	offsets, err := BackfillOffsets(r.cfg.BackfillCeiling, r.cfg.PageSize)
	if err != nil {
		return err
	}

	gte := r.gteTimestamp()
	if resuming {
		gte = cp.GteTimestamp
		r.logger.Info("resume backfill", zap.String("key", s.key), zap.Int("last_skip", cp.LastSkip))
	} else {
		cp = Checkpoint{Key: s.key, GteTimestamp: gte}
	}

	for i, skip := range offsets {
		if resuming && skip >= cp.LastSkip {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rows, full, err := fetchPage(ctx, r, s, gte, skip)
		if err != nil {
			return err
		}
		if i == 0 && full {
			r.logger.Warn("deepest backfill page is full, older rows may be missing",
				zap.String("key", s.key), zap.Int("skip", skip), zap.Int("rows", len(rows)))
		}
		if err := s.store.AppendPage(s.key, rows); err != nil {
			return err
		}
		r.metrics.AddRows(s.key, "backfill", len(rows))

		cp.LastSkip = skip
		if err := checkpoint.Save(cp); err != nil {
			return err
		}
		r.logger.Info("backfill page stored", zap.String("key", s.key), zap.Int("skip", skip), zap.Int("rows", len(rows)))
	}

	all, err := s.store.Load(s.key)
	if err != nil {
		return err
	}
	merged, dropped := mergeRows(all, s.id, s.timestamp)
	if err := s.store.WriteFull(s.key, merged); err != nil {
		return err
	}
	if err := checkpoint.Clear(); err != nil {
		return err
	}
	r.logger.Info("backfill complete", zap.String("key", s.key), zap.Int("rows", len(merged)), zap.Int("duplicates", dropped))
	return nil
}

func fetchPage[T any](ctx context.Context, r *Runner, s pagedSeries[T], gte int64, skip int) ([]T, bool, error) {
	var (
		rows []T
		full bool
	)
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		rows, full, err = s.fetch(ctx, gte, skip)
		if err != nil {
			r.logger.Warn("page fetch failed", zap.Error(err), zap.String("key", s.key), zap.Int("skip", skip))
		}
		return err
	})
	return rows, full, err
}

func (r *Runner) fetchPrices(ctx context.Context, coinID string) ([]model.PricePoint, error) {
	var points []model.PricePoint
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		points, err = r.sources.Prices.FetchPrices(ctx, coinID, r.cfg.LookbackDays)
		if err != nil {
			r.logger.Warn("price fetch failed", zap.Error(err), zap.String("coin", coinID))
		}
		return err
	})
	return points, err
}

func (r *Runner) gteTimestamp() int64 {
	return r.cfg.Now().Add(-time.Duration(r.cfg.LookbackDays) * 24 * time.Hour).Unix()
}
