package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oneleo/TokenlonContractAnalysis/internal/metrics"
	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

const (
	defaultBaseURL     = "https://api.coingecko.com/api/v3"
	defaultHTTPTimeout = 25 * time.Second
	defaultCurrency    = "usd"

	// DefaultLookbackDays is the trailing window requested from the provider.
	// Beyond one day the provider returns hourly samples.
	DefaultLookbackDays = 90

	sourceName = "coingecko"
)

// Client fetches historical spot prices from CoinGecko.
type Client struct {
	baseURL    string
	apiKey     string
	currency   string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Recorder
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sets the demo API key header.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
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

// NewClient constructs a CoinGecko client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		currency:   defaultCurrency,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type marketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

// FetchPrices returns the trailing price history of coinID in ascending
// order. Timestamps are in milliseconds, as returned by the provider; callers
// convert with model.NormalizePrices before matching.
func (c *Client) FetchPrices(ctx context.Context, coinID string, days int) ([]model.PricePoint, error) {
	if coinID == "" {
		return nil, fmt.Errorf("coin id is required")
	}
	if days <= 0 {
		days = DefaultLookbackDays
	}

	query := url.Values{}
	query.Set("vs_currency", c.currency)
	query.Set("days", strconv.Itoa(days))
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", c.baseURL, url.PathEscape(coinID), query.Encode())

	start := time.Now()
	body, err := c.get(ctx, endpoint)
	c.metrics.ObserveFetch(sourceName, start, err)
	if err != nil {
		return nil, err
	}

	var resp marketChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode market chart: %w", model.ErrSchemaMismatch, err)
	}
	if resp.Prices == nil {
		return nil, fmt.Errorf("%w: market chart for %s has no prices", model.ErrSchemaMismatch, coinID)
	}

	points := make([]model.PricePoint, 0, len(resp.Prices))
	for i, pair := range resp.Prices {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: price entry %d has %d values", model.ErrSchemaMismatch, i, len(pair))
		}
		points = append(points, model.PricePoint{
			TimestampMs: int64(pair[0]),
			Price:       pair[1],
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].TimestampMs < points[j].TimestampMs
	})

	c.logger.Info("fetched reference prices",
		zap.String("source", sourceName),
		zap.String("coin", coinID),
		zap.Int("days", days),
		zap.Int("points", len(points)),
	)
	return points, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: coingecko: %w", model.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: coingecko: read response: %w", model.ErrUpstreamFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: coingecko: http status %d: %s", model.ErrUpstreamFetch, resp.StatusCode, truncate(string(body), 240))
	}
	return body, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
