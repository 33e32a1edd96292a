package model

import "strings"

// Trade execution methods recorded by the event source. Limit order fills
// carry their own type value instead.
const (
	MethodAMM      = "amm"
	MethodPMMOrRFQ = "pmm_or_rfq"
)

// TradeRecord is a normalized order-fill event. Timestamp is in seconds and
// amounts are raw integer strings in the token's smallest unit.
type TradeRecord struct {
	ID          string `json:"id"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   int64  `json:"timestamp"`
	MakerToken  string `json:"maker_token"`
	MakerAmount string `json:"maker_amount"`
	TakerToken  string `json:"taker_token"`
	TakerAmount string `json:"taker_amount"`
	Method      string `json:"method"`
}

// TxHash returns the transaction hash embedded in the composite id
// ("<prefix>-<txhash>[-<index>]"), or "" when absent.
func (t TradeRecord) TxHash() string {
	parts := strings.Split(t.ID, "-")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// MatchedTrade is a trade annotated with its implied execution price and the
// nearest reference price.
type MatchedTrade struct {
	TradeRecord
	Side           string  `json:"side"`
	ImpliedPrice   float64 `json:"implied_price"`
	ReferencePrice float64 `json:"reference_price"`
	ReferenceTime  int64   `json:"reference_timestamp"`
}

// TxIndexRecord stores the position of a trade's transaction in its block.
type TxIndexRecord struct {
	ID          string `json:"id"`
	BlockNumber uint64 `json:"block_number"`
	Timestamp   int64  `json:"timestamp"`
	Index       uint64 `json:"index"`
}
