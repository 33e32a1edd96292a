package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsAndWritesTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveFetch("coingecko", time.Now(), nil)
	r.ObserveFetch("coingecko", time.Now(), errors.New("boom"))
	r.AddRows("eth_usd_price", "append", 3)
	r.AddRows("eth_usd_price", "append", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("coingecko", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetches.WithLabelValues("coingecko", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.rows.WithLabelValues("eth_usd_price", "append")))

	path := filepath.Join(t.TempDir(), "metrics", "pricescope.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "pricescope_rows_written_total"))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveFetch("x", time.Now(), nil)
	r.AddRows("k", "full", 1)
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile("ignored"))
}
