package indexer

import (
	"fmt"
	"time"
)

// BackfillOffsets returns the page offsets of a backfill, deepest first:
// ceiling, ceiling-pageSize, ..., 0.
func BackfillOffsets(ceiling, pageSize int) ([]int, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be greater than zero")
	}
	if ceiling < 0 {
		return nil, fmt.Errorf("backfill ceiling must be >= 0")
	}

	top := ceiling - ceiling%pageSize
	offsets := make([]int, 0, top/pageSize+1)
	for skip := top; skip >= 0; skip -= pageSize {
		offsets = append(offsets, skip)
	}
	return offsets, nil
}

// IsStale reports whether a series whose newest row is at lastSeconds needs
// a refresh. The comparison is strict: exactly threshold old is still fresh.
func IsStale(lastSeconds int64, now time.Time, threshold time.Duration) bool {
	return now.Unix()-lastSeconds > int64(threshold/time.Second)
}
