// Package txindex records where exchange transactions landed inside their
// blocks.
package txindex

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

// IndexFetcher returns the position of a transaction within its block;
// *chain.Client satisfies it.
type IndexFetcher interface {
	TransactionIndex(ctx context.Context, hash common.Hash) (uint64, error)
}

// ParseTxHash extracts the transaction hash embedded in a trade id.
func ParseTxHash(tradeID string) (common.Hash, error) {
	raw := model.TradeRecord{ID: tradeID}.TxHash()
	if raw == "" {
		return common.Hash{}, fmt.Errorf("trade id %q has no tx hash", tradeID)
	}
	data, err := hexutil.Decode(raw)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid tx hash %q: %w", raw, err)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid tx hash length: %s", raw)
	}
	return common.BytesToHash(data), nil
}

// Build looks up the transaction index of every trade newer than since
// (unix seconds, exclusive). Trades sharing a transaction share one lookup.
func Build(ctx context.Context, trades []model.TradeRecord, since int64, fetcher IndexFetcher, logger *zap.Logger) ([]model.TxIndexRecord, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	out := make([]model.TxIndexRecord, 0)
	resolved := make(map[common.Hash]uint64)
	for _, trade := range trades {
		if trade.Timestamp <= since {
			continue
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		hash, err := ParseTxHash(trade.ID)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, model.ErrSchemaMismatch)
		}
		idx, ok := resolved[hash]
		if !ok {
			idx, err = fetcher.TransactionIndex(ctx, hash)
			if err != nil {
				return nil, fmt.Errorf("tx index %s: %w: %w", hash.Hex(), model.ErrUpstreamFetch, err)
			}
			resolved[hash] = idx
		}
		out = append(out, model.TxIndexRecord{
			ID:          trade.ID,
			BlockNumber: trade.BlockNumber,
			Timestamp:   trade.Timestamp,
			Index:       idx,
		})
	}
	logger.Info("tx indexes resolved", zap.Int("trades", len(out)), zap.Int64("since", since))
	return out, nil
}

// Indexes returns the index column of records.
func Indexes(records []model.TxIndexRecord) []uint64 {
	out := make([]uint64, len(records))
	for i, r := range records {
		out[i] = r.Index
	}
	return out
}
