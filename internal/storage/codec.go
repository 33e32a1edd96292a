package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

// PricePointCodec stores reference prices with millisecond timestamps, the
// unit the market-data provider returns.
type PricePointCodec struct{}

func (PricePointCodec) Header() []string { return []string{"Timestamp", "Price"} }

func (PricePointCodec) Encode(p model.PricePoint) []string {
	return []string{
		strconv.FormatInt(p.TimestampMs, 10),
		strconv.FormatFloat(p.Price, 'f', -1, 64),
	}
}

func (PricePointCodec) Decode(record []string) (model.PricePoint, error) {
	ts, err := parseTimestamp(record[0])
	if err != nil {
		return model.PricePoint{}, err
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return model.PricePoint{}, fmt.Errorf("invalid price %q: %w", record[1], err)
	}
	return model.PricePoint{TimestampMs: ts, Price: price}, nil
}

func (PricePointCodec) Timestamp(p model.PricePoint) int64 { return p.TimestampMs }

// TradeCodec stores normalized trade records with second timestamps.
type TradeCodec struct{}

func (TradeCodec) Header() []string {
	return []string{"Id", "BlockNumber", "Timestamp", "MakerToken", "MakerAmount", "TakerToken", "TakerAmount", "Method"}
}

func (TradeCodec) Encode(t model.TradeRecord) []string {
	return []string{
		t.ID,
		strconv.FormatUint(t.BlockNumber, 10),
		strconv.FormatInt(t.Timestamp, 10),
		t.MakerToken,
		t.MakerAmount,
		t.TakerToken,
		t.TakerAmount,
		t.Method,
	}
}

func (TradeCodec) Decode(record []string) (model.TradeRecord, error) {
	block, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 64)
	if err != nil {
		return model.TradeRecord{}, fmt.Errorf("invalid block number %q: %w", record[1], err)
	}
	ts, err := parseTimestamp(record[2])
	if err != nil {
		return model.TradeRecord{}, err
	}
	return model.TradeRecord{
		ID:          record[0],
		BlockNumber: block,
		Timestamp:   ts,
		MakerToken:  strings.ToLower(record[3]),
		MakerAmount: record[4],
		TakerToken:  strings.ToLower(record[5]),
		TakerAmount: record[6],
		Method:      record[7],
	}, nil
}

func (TradeCodec) Timestamp(t model.TradeRecord) int64 { return t.Timestamp }

// HourCandleCodec stores Uniswap V3 hourly token data with second timestamps.
// Price repeats Close so the file reads like a reference price series.
type HourCandleCodec struct{}

func (HourCandleCodec) Header() []string {
	return []string{"Id", "Timestamp", "Open", "High", "Low", "Close", "Price"}
}

func (HourCandleCodec) Encode(c model.HourCandle) []string {
	return []string{c.ID, strconv.FormatInt(c.Timestamp, 10), c.Open, c.High, c.Low, c.Close, c.Close}
}

func (HourCandleCodec) Decode(record []string) (model.HourCandle, error) {
	ts, err := parseTimestamp(record[1])
	if err != nil {
		return model.HourCandle{}, err
	}
	return model.HourCandle{
		ID:        record[0],
		Timestamp: ts,
		Open:      record[2],
		High:      record[3],
		Low:       record[4],
		Close:     record[5],
	}, nil
}

func (HourCandleCodec) Timestamp(c model.HourCandle) int64 { return c.Timestamp }

// TxIndexCodec stores transaction positions for recent trades.
type TxIndexCodec struct{}

func (TxIndexCodec) Header() []string { return []string{"Id", "BlockNumber", "Timestamp", "Index"} }

func (TxIndexCodec) Encode(r model.TxIndexRecord) []string {
	return []string{
		r.ID,
		strconv.FormatUint(r.BlockNumber, 10),
		strconv.FormatInt(r.Timestamp, 10),
		strconv.FormatUint(r.Index, 10),
	}
}

func (TxIndexCodec) Decode(record []string) (model.TxIndexRecord, error) {
	block, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 64)
	if err != nil {
		return model.TxIndexRecord{}, fmt.Errorf("invalid block number %q: %w", record[1], err)
	}
	ts, err := parseTimestamp(record[2])
	if err != nil {
		return model.TxIndexRecord{}, err
	}
	index, err := strconv.ParseUint(strings.TrimSpace(record[3]), 10, 64)
	if err != nil {
		return model.TxIndexRecord{}, fmt.Errorf("invalid index %q: %w", record[3], err)
	}
	return model.TxIndexRecord{ID: record[0], BlockNumber: block, Timestamp: ts, Index: index}, nil
}

func (TxIndexCodec) Timestamp(r model.TxIndexRecord) int64 { return r.Timestamp }

// parseTimestamp accepts integer timestamps, including ones written as
// floats ("1679270400000.0") by other tools.
func parseTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if ts, err := strconv.ParseInt(value, 10, 64); err == nil {
		return ts, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return int64(f), nil
}
