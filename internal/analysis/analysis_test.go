package analysis

import "testing"

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 || std != 2 {
		t.Fatalf("mean/std = %v/%v, want 5/2", mean, std)
	}
	if m, s := MeanStd(nil); m != 0 || s != 0 {
		t.Fatalf("empty mean/std = %v/%v", m, s)
	}
}

func TestStdBoundsClampsToRange(t *testing.T) {
	lo, hi := StdBounds([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 1)
	if lo != 3 || hi != 7 {
		t.Fatalf("bounds = %v..%v, want 3..7", lo, hi)
	}
	lo, hi = StdBounds([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 10)
	if lo != 2 || hi != 9 {
		t.Fatalf("wide bounds = %v..%v, want 2..9", lo, hi)
	}
}

func TestOutliersByDay(t *testing.T) {
	day1 := int64(1_700_000_000) // 2023-11-14
	day2 := day1 + 86_400
	points := []Point{
		{day1, 1}, {day1 + 1, 1}, {day1 + 2, 1}, {day1 + 3, 1},
		{day1 + 4, 1}, {day1 + 5, 1}, {day1 + 6, 1}, {day1 + 7, 1},
		{day2, 100},
	}
	got := OutliersByDay(points, 2)
	if len(got) != 1 || got[0].Day != "2023-11-15" || got[0].Count != 1 {
		t.Fatalf("outliers = %+v", got)
	}
	if got := OutliersByDay(nil, 2); len(got) != 0 {
		t.Fatalf("empty outliers = %+v", got)
	}
}

func TestHistogram(t *testing.T) {
	got := Histogram([]uint64{0, 5, 39, 40, 130}, 40)
	want := []Bin{{0, 3}, {40, 1}, {80, 0}, {120, 1}}
	if len(got) != len(want) {
		t.Fatalf("bins = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bin %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if got := Histogram(nil, 40); len(got) != 0 {
		t.Fatalf("empty histogram = %+v", got)
	}
}
