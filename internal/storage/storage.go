package storage

// SeriesStore is an append-only time-series cache keyed by data source.
// Rows are kept ascending by timestamp.
type SeriesStore[T any] interface {
	Exists(key string) bool
	LastTimestamp(key string) (int64, error)
	AppendNew(key string, rows []T) (int, error)
	AppendPage(key string, rows []T) error
	WriteFull(key string, rows []T) error
	Load(key string) ([]T, error)
}

// Codec maps a row type to and from one CSV record.
type Codec[T any] interface {
	Header() []string
	Encode(row T) []string
	Decode(record []string) (T, error)
	Timestamp(row T) int64
}
