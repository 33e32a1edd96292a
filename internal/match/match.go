// Package match joins trades to the reference price nearest in time.
package match

import (
	"sort"

	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
	"github.com/oneleo/TokenlonContractAnalysis/internal/pricing"
)

// Nearest returns the index of the reference entry closest to ts.
// Equal distances resolve to the entry that comes first in ref.
// It returns -1 when ref is empty.
func Nearest(ref []model.ReferencePrice, ts int64) int {
	if len(ref) == 0 {
		return -1
	}
	if sorted(ref) {
		return nearestSorted(ref, ts)
	}
	return nearestLinear(ref, ts)
}

// Match pairs every priced trade with its nearest reference price. With an
// empty reference series nothing can be matched and the result is empty.
func Match(ref []model.ReferencePrice, trades []pricing.PricedTrade) []model.MatchedTrade {
	out := make([]model.MatchedTrade, 0, len(trades))
	if len(ref) == 0 {
		return out
	}
	isSorted := sorted(ref)
	for _, trade := range trades {
		var idx int
		if isSorted {
			idx = nearestSorted(ref, trade.Trade.Timestamp)
		} else {
			idx = nearestLinear(ref, trade.Trade.Timestamp)
		}
		out = append(out, model.MatchedTrade{
			TradeRecord:    trade.Trade,
			Side:           string(trade.Side),
			ImpliedPrice:   trade.Price,
			ReferencePrice: ref[idx].Price,
			ReferenceTime:  ref[idx].Timestamp,
		})
	}
	return out
}

func sorted(ref []model.ReferencePrice) bool {
	return sort.SliceIsSorted(ref, func(i, j int) bool {
		return ref[i].Timestamp < ref[j].Timestamp
	})
}

func nearestSorted(ref []model.ReferencePrice, ts int64) int {
	// first entry with Timestamp >= ts
	hi := sort.Search(len(ref), func(i int) bool { return ref[i].Timestamp >= ts })
	if hi == 0 {
		return 0
	}
	lo := hi - 1
	// walk back to the first entry of a run of equal timestamps
	for lo > 0 && ref[lo-1].Timestamp == ref[lo].Timestamp {
		lo--
	}
	if hi == len(ref) {
		return lo
	}
	if distance(ref[hi].Timestamp, ts) < distance(ref[lo].Timestamp, ts) {
		return hi
	}
	return lo
}

func nearestLinear(ref []model.ReferencePrice, ts int64) int {
	best := 0
	bestDist := distance(ref[0].Timestamp, ts)
	for i := 1; i < len(ref); i++ {
		if d := distance(ref[i].Timestamp, ts); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func distance(a, b int64) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}
