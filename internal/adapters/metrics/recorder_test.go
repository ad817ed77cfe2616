package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/fairpath/internal/adapters/metrics"
	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/ports"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Observations(t *testing.T) {
	r := metrics.NewRecorder()
	var m ports.Metrics = r

	m.FrozenCache(true)
	m.FrozenCache(false)
	m.FrozenCache(false)
	m.ObserveFrozenBuild("SPY", 1200, 3*time.Second)
	m.ObserveAnalysis("SPY", time.Second, nil)
	m.ObserveAnalysis("SPY", time.Second, errors.New("boom"))
	m.ObserveTrades(domain.StrategySum, 14)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1200.0, testutil.ToFloat64(r.FrozenPoints.WithLabelValues("SPY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.AnalysisErrors.WithLabelValues("SPY")))
	assert.Equal(t, 14.0, testutil.ToFloat64(r.Trades.WithLabelValues("SUM")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.AnalysisDuration))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := metrics.NewRecorder()
	r.ObserveTrades(domain.StrategyLive, 3)

	path := filepath.Join(t.TempDir(), "fairpath.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `fairpath_backtest_trades{strategy="LIVE"} 3`)
}

func TestNop(t *testing.T) {
	var m ports.Metrics = metrics.Nop{}
	m.FrozenCache(true)
	m.ObserveTrades(domain.StrategyFrozen, 1)
}
