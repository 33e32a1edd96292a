package model

// PricePoint is a reference price sample as returned by the market-data
// provider. TimestampMs is in milliseconds since epoch and is cached as is.
type PricePoint struct {
	TimestampMs int64   `json:"timestamp_ms"`
	Price       float64 `json:"price"`
}

// ReferencePrice is a reference price sample normalized to whole seconds.
// The matcher only accepts this form.
type ReferencePrice struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// MillisToSeconds truncates a millisecond timestamp to whole seconds.
func MillisToSeconds(ms int64) int64 {
	return ms / 1000
}

// NormalizePrices converts millisecond price points into second-resolution
// reference prices, keeping the input order.
func NormalizePrices(points []PricePoint) []ReferencePrice {
	out := make([]ReferencePrice, 0, len(points))
	for _, p := range points {
		out = append(out, ReferencePrice{
			Timestamp: MillisToSeconds(p.TimestampMs),
			Price:     p.Price,
		})
	}
	return out
}

// HourCandle is an hourly OHLC bucket from the Uniswap V3 subgraph.
// Timestamp is the period start in seconds.
type HourCandle struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
}
