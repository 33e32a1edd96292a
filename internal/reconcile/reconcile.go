// Package reconcile compares exchange execution prices with a reference
// price series.
package reconcile

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/oneleo/TokenlonContractAnalysis/internal/analysis"
	"github.com/oneleo/TokenlonContractAnalysis/internal/match"
	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
	"github.com/oneleo/TokenlonContractAnalysis/internal/pricing"
	"github.com/oneleo/TokenlonContractAnalysis/internal/render"
)

// MatchedSink receives matched trades.
type MatchedSink interface {
	PutMatchedBatch(trades []model.MatchedTrade) error
}

// Options select the trades to reconcile and the chart window.
type Options struct {
	Pair          pricing.Pair
	Sides         []pricing.Side
	MinQuote      float64
	From          int64
	To            int64
	StdN          float64
	ReferenceName string
}

// Result is the outcome for one side of the pair.
type Result struct {
	Side     pricing.Side
	Matched  []model.MatchedTrade
	Skipped  int
	Outliers []analysis.DayCount
}

// Reconciler prices, matches, stores and renders trades.
type Reconciler struct {
	renderer render.Renderer
	sink     MatchedSink
	logger   *zap.Logger
}

// New builds a Reconciler. sink may be nil.
func New(renderer render.Renderer, sink MatchedSink, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{renderer: renderer, sink: sink, logger: logger}
}

// Run reconciles every requested side. The reference series must already be
// in seconds.
func (r *Reconciler) Run(trades []model.TradeRecord, ref []model.ReferencePrice, opts Options) ([]Result, error) {
	if r.renderer == nil {
		return nil, fmt.Errorf("renderer is nil")
	}
	refName := opts.ReferenceName
	if refName == "" {
		refName = "reference"
	}

	results := make([]Result, 0, len(opts.Sides))
	for _, side := range opts.Sides {
		priced, skipped, err := pricing.Select(trades, opts.Pair, side, opts.MinQuote)
		if err != nil {
			return nil, fmt.Errorf("price %s trades: %w", side, err)
		}
		for _, skip := range skipped {
			r.logger.Warn("trade skipped", zap.String("side", string(side)), zap.Error(skip))
		}
		matched := match.Match(ref, priced)
		if len(ref) == 0 && len(priced) > 0 {
			r.logger.Warn("reference series is empty, trades left unmatched",
				zap.String("pair", opts.Pair.String()), zap.String("side", string(side)), zap.Int("trades", len(priced)))
		}

		if r.sink != nil {
			if err := r.sink.PutMatchedBatch(matched); err != nil {
				return nil, fmt.Errorf("store matched trades: %w", err)
			}
		}

		chart := ChartName(opts.Pair, side, opts.MinQuote)
		refSeries := render.ReferenceSeries(refName, ref)
		tradeSeries := render.TradeSeries("tokenlon", matched)
		if opts.From != 0 || opts.To != 0 {
			refSeries = render.ClipWindow(refSeries, opts.From, opts.To)
			tradeSeries = render.ClipWindow(tradeSeries, opts.From, opts.To)
		} else {
			refSeries = render.TrimReference(refSeries, tradeSeries)
		}
		if err := r.renderer.Render(chart, refSeries, tradeSeries); err != nil {
			return nil, fmt.Errorf("render %s: %w", chart, err)
		}

		stdN := opts.StdN
		if stdN <= 0 {
			stdN = 2
		}
		outliers := analysis.OutliersByDay(tradeSeries.Points, stdN)
		for _, day := range outliers {
			r.logger.Info("price outliers", zap.String("chart", chart), zap.String("day", day.Day), zap.Int("count", day.Count))
		}

		r.logger.Info("side reconciled",
			zap.String("chart", chart),
			zap.Int("trades", len(priced)),
			zap.Int("matched", len(matched)),
			zap.Int("skipped", len(skipped)),
		)
		results = append(results, Result{Side: side, Matched: matched, Skipped: len(skipped), Outliers: outliers})
	}
	return results, nil
}

// ChartName names the chart of one side, e.g. "ethereum_tether_sell_large".
func ChartName(pair pricing.Pair, side pricing.Side, minQuote float64) string {
	name := pair.Base.Symbol + "_" + pair.Quote.Symbol + "_" + string(side)
	if minQuote > 0 {
		name += "_over_" + strconv.FormatFloat(minQuote, 'f', -1, 64)
	}
	return name
}

// CandleSymbol returns the Uniswap hourly series that prices the pair's base
// asset.
func CandleSymbol(pair pricing.Pair) (string, error) {
	if pair.Base.UniswapSymbol == "" {
		return "", fmt.Errorf("asset %s has no uniswap symbol", pair.Base.Symbol)
	}
	return pair.Base.UniswapSymbol, nil
}

// CandlePrices converts hourly candles into a reference series using the
// close price. Candles without a close are skipped.
func CandlePrices(candles []model.HourCandle) ([]model.ReferencePrice, error) {
	out := make([]model.ReferencePrice, 0, len(candles))
	for _, c := range candles {
		if c.Close == "" {
			continue
		}
		price, err := strconv.ParseFloat(c.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("candle %s close %q: %w", c.ID, c.Close, model.ErrSchemaMismatch)
		}
		out = append(out, model.ReferencePrice{Timestamp: c.Timestamp, Price: price})
	}
	return out, nil
}
