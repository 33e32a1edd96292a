// Package render is the boundary between reconciled series and whatever
// draws them.
package render

import (
	"sort"

	"github.com/oneleo/TokenlonContractAnalysis/internal/analysis"
	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

// Series is a named sequence of points in unix seconds.
type Series struct {
	Name   string
	Points []analysis.Point
}

// Values returns the series values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Renderer draws one chart made of one or more series.
type Renderer interface {
	Render(name string, series ...Series) error
}

// ReferenceSeries converts a reference price series.
func ReferenceSeries(name string, ref []model.ReferencePrice) Series {
	points := make([]analysis.Point, len(ref))
	for i, r := range ref {
		points[i] = analysis.Point{Timestamp: r.Timestamp, Value: r.Price}
	}
	return Series{Name: name, Points: points}
}

// TradeSeries converts matched trades into their implied price series.
func TradeSeries(name string, trades []model.MatchedTrade) Series {
	points := make([]analysis.Point, len(trades))
	for i, t := range trades {
		points[i] = analysis.Point{Timestamp: t.Timestamp, Value: t.ImpliedPrice}
	}
	return Series{Name: name, Points: points}
}

// ClipWindow keeps the points with from <= Timestamp <= to. A zero bound is
// open.
func ClipWindow(s Series, from, to int64) Series {
	out := Series{Name: s.Name, Points: make([]analysis.Point, 0, len(s.Points))}
	for _, p := range s.Points {
		if from != 0 && p.Timestamp < from {
			continue
		}
		if to != 0 && p.Timestamp > to {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out
}

// TrimReference drops reference samples before the one immediately
// preceding the first trade, so both series start together.
func TrimReference(ref Series, trades Series) Series {
	if len(trades.Points) == 0 || len(ref.Points) == 0 {
		return ref
	}
	first := trades.Points[0].Timestamp
	for _, p := range trades.Points[1:] {
		if p.Timestamp < first {
			first = p.Timestamp
		}
	}
	points := append([]analysis.Point(nil), ref.Points...)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })

	start := sort.Search(len(points), func(i int) bool { return points[i].Timestamp >= first })
	if start > 0 {
		start--
	}
	return Series{Name: ref.Name, Points: points[start:]}
}
