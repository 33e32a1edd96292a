package indexer

import "sort"

// mergeRows drops rows whose id was already seen, keeping the first copy,
// and orders the rest ascending by timestamp. Equal timestamps keep their
// input order.
func mergeRows[T any](rows []T, id func(T) string, timestamp func(T) int64) ([]T, int) {
	seen := make(map[string]struct{}, len(rows))
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		key := id(row)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return timestamp(out[i]) < timestamp(out[j])
	})
	return out, len(rows) - len(out)
}
