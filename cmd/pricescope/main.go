package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oneleo/TokenlonContractAnalysis/internal/metrics"
	"github.com/oneleo/TokenlonContractAnalysis/internal/model"
)

func main() {
	root := &cobra.Command{
		Use:          "pricescope",
		Short:        "Compare Tokenlon execution prices with market reference prices",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("data-dir", "./data", "cache directory")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("metrics-file", "", "write run metrics to this Prometheus textfile")
	root.PersistentFlags().Int("max-retries", 0, "retries for failed upstream requests")
	root.PersistentFlags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	root.PersistentFlags().Duration("http-timeout", 30*time.Second, "HTTP request timeout")

	root.AddCommand(newSyncCmd(), newMatchCmd(), newTxIndexCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("run_id", uuid.NewString())), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// finish writes the metrics textfile and logs the run outcome by error class.
func finish(logger *zap.Logger, rec *metrics.Recorder, metricsFile string, err error) error {
	if metricsFile != "" {
		if werr := rec.WriteTextfile(metricsFile); werr != nil {
			logger.Warn("write metrics failed", zap.String("path", metricsFile), zap.Error(werr))
		}
	}
	if err == nil {
		return nil
	}

	kind := "internal"
	switch {
	case errors.Is(err, model.ErrStoreUnavailable):
		kind = "store_unavailable"
	case errors.Is(err, model.ErrUpstreamFetch):
		kind = "upstream_fetch"
	case errors.Is(err, model.ErrSchemaMismatch):
		kind = "schema_mismatch"
	case errors.Is(err, context.Canceled):
		kind = "canceled"
	}
	logger.Error("run failed", zap.String("kind", kind), zap.Error(err))
	return fmt.Errorf("%s: %w", kind, err)
}
