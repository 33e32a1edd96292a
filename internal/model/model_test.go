package model

import (
	"reflect"
	"testing"
)

func TestNormalizePricesConvertsMillis(t *testing.T) {
	points := []PricePoint{
		{TimestampMs: 1679270400123, Price: 1780.5},
		{TimestampMs: 1679274000999, Price: 1782.25},
	}

	got := NormalizePrices(points)
	want := []ReferencePrice{
		{Timestamp: 1679270400, Price: 1780.5},
		{Timestamp: 1679274000, Price: 1782.25},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalize mismatch: %+v != %+v", got, want)
	}
}

func TestNormalizePricesEmpty(t *testing.T) {
	got := NormalizePrices(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestTradeRecordTxHash(t *testing.T) {
	trade := TradeRecord{ID: "0xabc-0x5f1d0c8bde0c0d53fd5b4a0a5b7d0c3d7f2b0b6f3a1c9e8d7c6b5a4f3e2d1c0b-12"}
	if got := trade.TxHash(); got != "0x5f1d0c8bde0c0d53fd5b4a0a5b7d0c3d7f2b0b6f3a1c9e8d7c6b5a4f3e2d1c0b" {
		t.Fatalf("tx hash mismatch: %s", got)
	}

	if got := (TradeRecord{ID: "no-separator-here"}).TxHash(); got != "separator" {
		t.Fatalf("unexpected second component: %s", got)
	}
	if got := (TradeRecord{ID: "plain"}).TxHash(); got != "" {
		t.Fatalf("expected empty hash, got %s", got)
	}
}
