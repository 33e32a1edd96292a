package subgraph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

// FieldMap names the source field holding each common trade column.
type FieldMap struct {
	ID          string
	BlockNumber string
	Timestamp   string
	MakerToken  string
	MakerAmount string
	TakerToken  string
	TakerAmount string
}

// Schema describes one event stream of the indexer and how it maps onto
// model.TradeRecord. Exactly one of Method and MethodField is set.
type Schema struct {
	Entity      string
	Fields      FieldMap
	Method      string
	MethodField string
	// QuotedFilter is set when the timestamp filter is a BigInt passed as a string.
	QuotedFilter bool
}

func (s Schema) selection() []string {
	fields := []string{
		s.Fields.ID,
		s.Fields.BlockNumber,
		s.Fields.Timestamp,
		s.Fields.MakerToken,
		s.Fields.MakerAmount,
		s.Fields.TakerToken,
		s.Fields.TakerAmount,
	}
	if s.MethodField != "" {
		fields = append(fields, s.MethodField)
	}
	return fields
}

var settleFields = FieldMap{
	ID:          "id",
	BlockNumber: "blockNumber",
	Timestamp:   "timestamp",
	MakerToken:  "makerAssetAddr",
	MakerAmount: "settleAmount",
	TakerToken:  "takerAssetAddr",
	TakerAmount: "takerAssetAmount",
}

// TradeSchemas is the normalization table for the Tokenlon subgraph, in the
// order the streams are concatenated.
var TradeSchemas = []Schema{
	{Entity: "swappeds", Fields: settleFields, Method: model.MethodAMM},
	{Entity: "fillOrders", Fields: settleFields, Method: model.MethodPMMOrRFQ},
	{
		Entity: "limitOrders",
		Fields: FieldMap{
			ID:          "id",
			BlockNumber: "blockNumber",
			Timestamp:   "blockTimestamp",
			MakerToken:  "makerToken",
			MakerAmount: "makerTokenFilledAmount",
			TakerToken:  "takerToken",
			TakerAmount: "takerTokenFilledAmount",
		},
		MethodField:  "limitOrderType",
		QuotedFilter: true,
	},
}

type rawEvent map[string]json.RawMessage

// Normalize renames one page of raw events into trade records.
func (s Schema) Normalize(events []rawEvent) ([]model.TradeRecord, error) {
	out := make([]model.TradeRecord, 0, len(events))
	for i, ev := range events {
		rec, err := s.normalizeOne(ev)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %w", model.ErrSchemaMismatch, s.Entity, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s Schema) normalizeOne(ev rawEvent) (model.TradeRecord, error) {
	var rec model.TradeRecord
	var err error

	if rec.ID, err = stringField(ev, s.Fields.ID); err != nil {
		return rec, err
	}
	block, err := stringField(ev, s.Fields.BlockNumber)
	if err != nil {
		return rec, err
	}
	if rec.BlockNumber, err = strconv.ParseUint(block, 10, 64); err != nil {
		return rec, fmt.Errorf("field %s: %w", s.Fields.BlockNumber, err)
	}
	ts, err := stringField(ev, s.Fields.Timestamp)
	if err != nil {
		return rec, err
	}
	if rec.Timestamp, err = strconv.ParseInt(ts, 10, 64); err != nil {
		return rec, fmt.Errorf("field %s: %w", s.Fields.Timestamp, err)
	}
	if rec.MakerToken, err = stringField(ev, s.Fields.MakerToken); err != nil {
		return rec, err
	}
	if rec.MakerAmount, err = stringField(ev, s.Fields.MakerAmount); err != nil {
		return rec, err
	}
	if rec.TakerToken, err = stringField(ev, s.Fields.TakerToken); err != nil {
		return rec, err
	}
	if rec.TakerAmount, err = stringField(ev, s.Fields.TakerAmount); err != nil {
		return rec, err
	}
	rec.MakerToken = strings.ToLower(rec.MakerToken)
	rec.TakerToken = strings.ToLower(rec.TakerToken)

	rec.Method = s.Method
	if s.MethodField != "" {
		if rec.Method, err = stringField(ev, s.MethodField); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// stringField reads a scalar field. The indexer encodes BigInt values as
// strings and Int values as numbers; both come back as their text.
func stringField(ev rawEvent, name string) (string, error) {
	raw, ok := ev[name]
	if !ok {
		return "", fmt.Errorf("missing field %s", name)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return "", fmt.Errorf("field %s is null", name)
	}
	if text[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("field %s: %w", name, err)
		}
		return s, nil
	}
	if text[0] == '{' || text[0] == '[' {
		return "", fmt.Errorf("field %s is not a scalar", name)
	}
	return text, nil
}
