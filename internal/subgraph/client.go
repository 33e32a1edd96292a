package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oneleo/TokenlonContractAnalysis/internal/metrics"
	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

const defaultHTTPTimeout = 30 * time.Second

// Client posts GraphQL queries to one subgraph endpoint.
type Client struct {
	endpoint   string
	source     string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Recorder
}

// Option configures a new Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// WithSource sets the label used in logs and metrics.
func WithSource(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.source = name
		}
	}
}

// NewClient builds a client for the subgraph at endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("subgraph endpoint is required")
	}
	c := &Client{
		endpoint:   endpoint,
		source:     "subgraph",
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []graphQLError             `json:"errors"`
}

// TradePage is one normalized page of trades plus the raw row count of each
// stream, used to detect pages that hit the size limit.
type TradePage struct {
	Trades []model.TradeRecord
	Counts map[string]int
}

// Full reports whether any stream returned a full page.
func (p TradePage) Full() bool {
	for _, n := range p.Counts {
		if n >= PageSize {
			return true
		}
	}
	return false
}

// FetchTradePage fetches one page of every trade stream with timestamps at or
// after gteTimestamp (seconds), normalizes it and sorts it ascending.
func (c *Client) FetchTradePage(ctx context.Context, gteTimestamp int64, skip int) (TradePage, error) {
	data, err := c.query(ctx, TradeQuery(gteTimestamp, skip))
	if err != nil {
		return TradePage{}, err
	}

	page := TradePage{Counts: make(map[string]int, len(TradeSchemas))}
	for _, schema := range TradeSchemas {
		events, err := decodeEntity(data, schema.Entity)
		if err != nil {
			return TradePage{}, err
		}
		trades, err := schema.Normalize(events)
		if err != nil {
			return TradePage{}, err
		}
		page.Counts[schema.Entity] = len(events)
		page.Trades = append(page.Trades, trades...)
	}
	SortTrades(page.Trades)

	c.logger.Info("fetched trade page",
		zap.String("source", c.source),
		zap.Int("skip", skip),
		zap.Int64("timestamp_gte", gteTimestamp),
		zap.Int("trades", len(page.Trades)),
	)
	return page, nil
}

// FetchTokenHourPage fetches one page of hourly token data for symbol,
// sorted ascending. Timestamps are period starts in seconds.
func (c *Client) FetchTokenHourPage(ctx context.Context, symbol string, gteTimestamp int64, skip int) ([]model.HourCandle, error) {
	data, err := c.query(ctx, TokenHourQuery(symbol, gteTimestamp, skip))
	if err != nil {
		return nil, err
	}
	events, err := decodeEntity(data, "tokenHourDatas")
	if err != nil {
		return nil, err
	}

	candles := make([]model.HourCandle, 0, len(events))
	for i, ev := range events {
		candle, err := hourCandle(ev)
		if err != nil {
			return nil, fmt.Errorf("%w: tokenHourDatas[%d]: %w", model.ErrSchemaMismatch, i, err)
		}
		candles = append(candles, candle)
	}
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})

	c.logger.Info("fetched token hour page",
		zap.String("source", c.source),
		zap.String("symbol", symbol),
		zap.Int("skip", skip),
		zap.Int("candles", len(candles)),
	)
	return candles, nil
}

// SortTrades orders trades ascending by timestamp, keeping the relative
// order of equal timestamps.
func SortTrades(trades []model.TradeRecord) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp < trades[j].Timestamp
	})
}

func hourCandle(ev rawEvent) (model.HourCandle, error) {
	var c model.HourCandle
	id, err := stringField(ev, "id")
	if err != nil {
		return c, err
	}
	// id is "<token address>-<hour index>"
	c.ID = strings.SplitN(id, "-", 2)[0]

	ts, err := stringField(ev, "periodStartUnix")
	if err != nil {
		return c, err
	}
	if c.Timestamp, err = strconv.ParseInt(ts, 10, 64); err != nil {
		return c, fmt.Errorf("field periodStartUnix: %w", err)
	}
	if c.Open, err = stringField(ev, "open"); err != nil {
		return c, err
	}
	if c.High, err = stringField(ev, "high"); err != nil {
		return c, err
	}
	if c.Low, err = stringField(ev, "low"); err != nil {
		return c, err
	}
	if c.Close, err = stringField(ev, "close"); err != nil {
		return c, err
	}
	return c, nil
}

func decodeEntity(data map[string]json.RawMessage, entity string) ([]rawEvent, error) {
	raw, ok := data[entity]
	if !ok {
		return nil, fmt.Errorf("%w: response has no %s", model.ErrSchemaMismatch, entity)
	}
	var events []rawEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", model.ErrSchemaMismatch, entity, err)
	}
	return events, nil
}

func (c *Client) query(ctx context.Context, query string) (map[string]json.RawMessage, error) {
	payload, err := json.Marshal(graphQLRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("subgraph: encode request: %w", err)
	}

	start := time.Now()
	body, err := c.post(ctx, payload)
	c.metrics.ObserveFetch(c.source, start, err)
	if err != nil {
		return nil, err
	}

	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode graphql response: %w", model.ErrSchemaMismatch, err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("%w: %s: graphql errors: %s", model.ErrUpstreamFetch, c.source, strings.Join(msgs, "; "))
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: graphql response has no data", model.ErrSchemaMismatch)
	}
	return resp.Data, nil
}

func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("subgraph: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrUpstreamFetch, c.source, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read response: %w", model.ErrUpstreamFetch, c.source, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: http status %d", model.ErrUpstreamFetch, c.source, resp.StatusCode)
	}
	return body, nil
}
