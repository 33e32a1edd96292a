package storage

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

// CSVStore keeps one CSV file per key under a directory. The first record is
// the header; the remaining records are rows in file (timestamp) order.
type CSVStore[T any] struct {
	dir    string
	codec  Codec[T]
	logger *zap.Logger
	mu     sync.Mutex
}

func NewCSVStore[T any](dir string, codec Codec[T], logger *zap.Logger) *CSVStore[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVStore[T]{dir: dir, codec: codec, logger: logger}
}

// Path returns the file backing key.
func (s *CSVStore[T]) Path(key string) string {
	return filepath.Join(s.dir, key+".csv")
}

// Exists reports whether the cache for key has been materialized.
func (s *CSVStore[T]) Exists(key string) bool {
	stat, err := os.Stat(s.Path(key))
	if err != nil {
		return false
	}
	return !stat.IsDir()
}

// LastTimestamp returns the timestamp of the last row, or 0 when the cache
// is missing or empty. The unit is the one the rows were stored in.
func (s *CSVStore[T]) LastTimestamp(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTimestamp(key)
}

func (s *CSVStore[T]) lastTimestamp(key string) (int64, error) {
	if !s.Exists(key) {
		return 0, nil
	}
	rows, err := s.load(key)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return s.codec.Timestamp(rows[len(rows)-1]), nil
}

// AppendNew appends the rows newer than the last stored row and returns how
// many were written. Existing rows are never rewritten.
func (s *CSVStore[T]) AppendNew(key string, rows []T) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Exists(key) {
		return 0, fmt.Errorf("append %s: %w", key, model.ErrStoreUnavailable)
	}
	last, err := s.lastTimestamp(key)
	if err != nil {
		return 0, err
	}

	fresh := make([]T, 0, len(rows))
	for _, row := range rows {
		if s.codec.Timestamp(row) > last {
			fresh = append(fresh, row)
		}
	}
	if len(fresh) == 0 {
		s.logger.Debug("no new rows", zap.String("key", key), zap.Int64("last_timestamp", last))
		return 0, nil
	}

	if err := s.appendRecords(key, fresh, false); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// AppendPage appends rows as given, creating the file with a header when it
// does not exist yet. Only backfills use it; they must finish with WriteFull.
func (s *CSVStore[T]) AppendPage(key string, rows []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendRecords(key, rows, !s.Exists(key))
}

// WriteFull creates or replaces the cache for key with rows.
func (s *CSVStore[T]) WriteFull(key string, rows []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return err
	}

	path := s.Path(key)
	tmpPath := path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open cache tmp: %w", err)
	}
	if err := s.writeRecords(file, rows, true); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close cache tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename cache: %w", err)
	}
	return nil
}

// Load reads all rows for key in file order.
func (s *CSVStore[T]) Load(key string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Exists(key) {
		return nil, fmt.Errorf("load %s: %w", key, model.ErrStoreUnavailable)
	}
	return s.load(key)
}

func (s *CSVStore[T]) load(key string) ([]T, error) {
	file, err := os.Open(s.Path(key))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.FieldsPerRecord = len(s.codec.Header())

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header %s: %w", key, err)
	}
	if err := checkHeader(header, s.codec.Header()); err != nil {
		return nil, fmt.Errorf("cache %s: %w", key, err)
	}

	rows := make([]T, 0, 1024)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read cache %s: %w", key, err)
		}
		row, err := s.codec.Decode(record)
		if err != nil {
			return nil, fmt.Errorf("decode cache %s line %d: %w", key, len(rows)+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *CSVStore[T]) appendRecords(key string, rows []T, withHeader bool) error {
	if err := s.ensureDir(); err != nil {
		return err
	}

	file, err := os.OpenFile(s.Path(key), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	if err := s.writeRecords(file, rows, withHeader); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (s *CSVStore[T]) writeRecords(w io.Writer, rows []T, withHeader bool) error {
	buf := bufio.NewWriter(w)
	writer := csv.NewWriter(buf)
	if withHeader {
		if err := writer.Write(s.codec.Header()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, row := range rows {
		if err := writer.Write(s.codec.Encode(row)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func (s *CSVStore[T]) ensureDir() error {
	if s.dir == "" || s.dir == "." {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return nil
}

func checkHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("header has %d columns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("header column %d is %q, want %q", i, got[i], want[i])
		}
	}
	return nil
}
