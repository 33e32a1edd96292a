// Package analysis holds the summary statistics used when rendering
// reconciled series.
package analysis

import (
	"math"
	"sort"
	"time"
)

// Point is a timestamped value; Timestamp is unix seconds.
type Point struct {
	Timestamp int64
	Value     float64
}

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		d := v - mean
		std += d * d
	}
	std = math.Sqrt(std / float64(len(values)))
	return mean, std
}

// StdBounds returns the y-range covering values within n standard
// deviations of the mean, clamped to the observed min and max.
func StdBounds(values []float64, n float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean, std := MeanStd(values)
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	lo = math.Max(min, mean-n*std)
	hi = math.Min(max, mean+n*std)
	return lo, hi
}

// DayCount is the number of outliers on one UTC day.
type DayCount struct {
	Day   string
	Count int
}

// OutliersByDay counts points above mean+n·std per UTC day. Days with no
// outliers are omitted; the result is ordered by day.
func OutliersByDay(points []Point, n float64) []DayCount {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	mean, std := MeanStd(values)
	limit := mean + n*std

	counts := make(map[string]int)
	for _, p := range points {
		if p.Value > limit {
			day := time.Unix(p.Timestamp, 0).UTC().Format(time.DateOnly)
			counts[day]++
		}
	}
	out := make([]DayCount, 0, len(counts))
	for day, c := range counts {
		out = append(out, DayCount{Day: day, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// Bin is one histogram bucket covering [Lower, Lower+width).
type Bin struct {
	Lower int64
	Count int
}

// Histogram buckets values into bins of the given width, starting at zero.
// Empty bins between the first and last populated bin are included.
func Histogram(values []uint64, width uint64) []Bin {
	if len(values) == 0 || width == 0 {
		return []Bin{}
	}
	var maxBucket uint64
	counts := make(map[uint64]int)
	for _, v := range values {
		b := v / width
		counts[b]++
		if b > maxBucket {
			maxBucket = b
		}
	}
	out := make([]Bin, 0, maxBucket+1)
	for b := uint64(0); b <= maxBucket; b++ {
		out = append(out, Bin{Lower: int64(b * width), Count: counts[b]})
	}
	return out
}
