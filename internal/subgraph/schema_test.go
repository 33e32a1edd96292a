package subgraph

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

func decodeEvents(t *testing.T, payload string) []rawEvent {
	t.Helper()
	var events []rawEvent
	if err := json.Unmarshal([]byte(payload), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	return events
}

func TestNormalizeLimitOrderUsesTypeField(t *testing.T) {
	events := decodeEvents(t, `[{
		"id": "0x01-0xfeed-3",
		"blockNumber": "16890000",
		"blockTimestamp": "1679300000",
		"makerToken": "0xDAC17F958D2EE523A2206206994597C13D831EC7",
		"makerTokenFilledAmount": "5000000000",
		"takerToken": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		"takerTokenFilledAmount": "2500000000000000000",
		"limitOrderType": "ByProfitTaker"
	}]`)

	trades, err := TradeSchemas[2].Normalize(events)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	want := model.TradeRecord{
		ID:          "0x01-0xfeed-3",
		BlockNumber: 16890000,
		Timestamp:   1679300000,
		MakerToken:  "0xdac17f958d2ee523a2206206994597c13d831ec7",
		MakerAmount: "5000000000",
		TakerToken:  "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
		TakerAmount: "2500000000000000000",
		Method:      "ByProfitTaker",
	}
	if len(trades) != 1 || trades[0] != want {
		t.Fatalf("trade mismatch: %+v", trades)
	}
}

func TestNormalizeTagsFixedMethods(t *testing.T) {
	payload := `[{
		"id": "x-0xab-0", "blockNumber": 1, "timestamp": 42,
		"makerAssetAddr": "0xAA", "settleAmount": "10",
		"takerAssetAddr": "0xBB", "takerAssetAmount": "20"
	}]`

	amm, err := TradeSchemas[0].Normalize(decodeEvents(t, payload))
	if err != nil {
		t.Fatalf("normalize swappeds: %v", err)
	}
	rfq, err := TradeSchemas[1].Normalize(decodeEvents(t, payload))
	if err != nil {
		t.Fatalf("normalize fillOrders: %v", err)
	}
	if amm[0].Method != model.MethodAMM || rfq[0].Method != model.MethodPMMOrRFQ {
		t.Fatalf("method mismatch: %s %s", amm[0].Method, rfq[0].Method)
	}
	if amm[0].Timestamp != 42 || amm[0].BlockNumber != 1 {
		t.Fatalf("numeric fields mismatch: %+v", amm[0])
	}
}

func TestNormalizeMissingFieldIsSchemaMismatch(t *testing.T) {
	events := decodeEvents(t, `[{"id": "x", "blockNumber": "1", "timestamp": "2"}]`)
	_, err := TradeSchemas[0].Normalize(events)
	if !errors.Is(err, model.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "makerAssetAddr") {
		t.Fatalf("error should name the field: %v", err)
	}
}

func TestTradeQueryCoversEveryStream(t *testing.T) {
	q := TradeQuery(1672531200, 3000)
	for _, want := range []string{
		"swappeds(", "fillOrders(", "limitOrders(",
		"skip: 3000", "first: 1000", "orderDirection: desc",
		"where: {timestamp_gte: 1672531200}",
		`where: {blockTimestamp_gte: "1672531200"}`,
		"limitOrderType", "takerTokenFilledAmount", "settleAmount",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("query missing %q:\n%s", want, q)
		}
	}
}
