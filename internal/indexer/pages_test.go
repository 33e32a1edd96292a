package indexer

import (
	"reflect"
	"testing"
	"time"
)

func TestBackfillOffsets(t *testing.T) {
	got, err := BackfillOffsets(5000, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{5000, 4000, 3000, 2000, 1000, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("offsets mismatch: %+v != %+v", got, want)
	}
}

func TestBackfillOffsetsRoundsDown(t *testing.T) {
	got, err := BackfillOffsets(2500, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int{2000, 1000, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("offsets mismatch: %+v != %+v", got, want)
	}
}

func TestBackfillOffsetsInvalid(t *testing.T) {
	if _, err := BackfillOffsets(5000, 0); err == nil {
		t.Fatalf("expected error for zero page size")
	}
	if _, err := BackfillOffsets(-1, 1000); err == nil {
		t.Fatalf("expected error for negative ceiling")
	}
}

func TestIsStale(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cases := []struct {
		last int64
		want bool
	}{
		{now.Unix() - 7200, true},
		{now.Unix() - 1800, false},
		{now.Unix() - 3600, false},
		{now.Unix() - 3601, true},
	}
	for _, tc := range cases {
		if got := IsStale(tc.last, now, time.Hour); got != tc.want {
			t.Fatalf("IsStale(now-%d) = %v, want %v", now.Unix()-tc.last, got, tc.want)
		}
	}
}
