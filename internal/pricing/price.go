package pricing

import (
	"fmt"
	"math/big"

	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

// Side is the direction of a trade from the base asset's point of view.
type Side string

const (
	// Sell: the taker gives up the base asset and the maker pays the quote asset.
	Sell Side = "sell"
	// Buy: the taker pays the quote asset and receives the base asset.
	Buy Side = "buy"
)

// Pair is a traded pair; prices are quoted as quote units per base unit.
type Pair struct {
	Base  Asset
	Quote Asset
}

func (p Pair) String() string {
	return p.Base.Symbol + "-" + p.Quote.Symbol
}

// Validate checks both assets have known decimals.
func (p Pair) Validate() error {
	if p.Base.Decimals < 0 {
		return fmt.Errorf("pair %s: unknown decimals for %s", p, p.Base.Symbol)
	}
	if p.Quote.Decimals < 0 {
		return fmt.Errorf("pair %s: unknown decimals for %s", p, p.Quote.Symbol)
	}
	return nil
}

// Classify returns the side of trade for pair, matching any alias of each
// asset. ok is false when the trade is not on this pair.
func Classify(trade model.TradeRecord, pair Pair) (Side, bool) {
	switch {
	case pair.Quote.Has(trade.MakerToken) && pair.Base.Has(trade.TakerToken):
		return Sell, true
	case pair.Base.Has(trade.MakerToken) && pair.Quote.Has(trade.TakerToken):
		return Buy, true
	default:
		return "", false
	}
}

// ImpliedPrice returns the execution price of trade in quote per base units.
// Each raw amount is scaled by the decimals of the asset in its slot.
func ImpliedPrice(trade model.TradeRecord, pair Pair, side Side) (*big.Rat, error) {
	maker, err := parseAmount(trade.MakerAmount)
	if err != nil {
		return nil, fmt.Errorf("trade %s maker amount: %w", trade.ID, err)
	}
	taker, err := parseAmount(trade.TakerAmount)
	if err != nil {
		return nil, fmt.Errorf("trade %s taker amount: %w", trade.ID, err)
	}

	var quoteAmount, baseAmount *big.Int
	switch side {
	case Sell:
		quoteAmount, baseAmount = maker, taker
	case Buy:
		quoteAmount, baseAmount = taker, maker
	default:
		return nil, fmt.Errorf("unknown side %q", side)
	}
	if baseAmount.Sign() == 0 {
		return nil, fmt.Errorf("trade %s: zero base amount", trade.ID)
	}

	quote := scaled(quoteAmount, pair.Quote.Decimals)
	base := scaled(baseAmount, pair.Base.Decimals)
	return new(big.Rat).Quo(quote, base), nil
}

// QuoteAmount returns the trade's quote-asset amount in whole units.
func QuoteAmount(trade model.TradeRecord, pair Pair, side Side) (*big.Rat, error) {
	raw := trade.MakerAmount
	if side == Buy {
		raw = trade.TakerAmount
	}
	amount, err := parseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("trade %s quote amount: %w", trade.ID, err)
	}
	return scaled(amount, pair.Quote.Decimals), nil
}

// PricedTrade is a trade on a pair with its implied price.
type PricedTrade struct {
	Trade model.TradeRecord
	Side  Side
	Price float64
}

// Select returns the trades of pair on side, priced. When minQuote is
// positive only trades whose quote amount is strictly greater are kept.
// Trades whose amounts cannot be priced are left out and reported in
// skipped, each wrapping model.ErrSchemaMismatch.
func Select(trades []model.TradeRecord, pair Pair, side Side, minQuote float64) (priced []PricedTrade, skipped []error, err error) {
	if err := pair.Validate(); err != nil {
		return nil, nil, err
	}
	var threshold *big.Rat
	if minQuote > 0 {
		threshold = new(big.Rat).SetFloat64(minQuote)
	}

	priced = make([]PricedTrade, 0)
	for _, trade := range trades {
		got, ok := Classify(trade, pair)
		if !ok || got != side {
			continue
		}
		if threshold != nil {
			amount, err := QuoteAmount(trade, pair, side)
			if err != nil {
				skipped = append(skipped, fmt.Errorf("%w: %w", model.ErrSchemaMismatch, err))
				continue
			}
			if amount.Cmp(threshold) <= 0 {
				continue
			}
		}
		price, err := ImpliedPrice(trade, pair, side)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%w: %w", model.ErrSchemaMismatch, err))
			continue
		}
		f, _ := price.Float64()
		priced = append(priced, PricedTrade{Trade: trade, Side: side, Price: f})
	}
	return priced, skipped, nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", value)
	}
	return amount, nil
}

func scaled(value *big.Int, decimals int) *big.Rat {
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(value, denom)
}
