package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

func TestWithRetryRetriesUpstreamErrors(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("timeout: %w", model.ErrUpstreamFetch)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestWithRetryZeroMeansOneAttempt(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 0, time.Millisecond, func(context.Context) error {
		attempts++
		return model.ErrUpstreamFetch
	})
	if !errors.Is(err, model.ErrUpstreamFetch) || attempts != 1 {
		t.Fatalf("err=%v attempts=%d", err, attempts)
	}
}

func TestWithRetrySkipsSchemaErrors(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		attempts++
		return model.ErrSchemaMismatch
	})
	if !errors.Is(err, model.ErrSchemaMismatch) || attempts != 1 {
		t.Fatalf("err=%v attempts=%d", err, attempts)
	}
}
