package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/fairpath/internal/adapters/notify"
	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/ports"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

func makeReport() domain.AnalysisReport {
	entry := asOf.AddDate(0, 0, -10)
	return domain.AnalysisReport{
		RunID:         uuid.New(),
		Ticker:        "SPY",
		AsOf:          asOf,
		Dates:         []time.Time{asOf.AddDate(0, 0, -1), asOf},
		Prices:        []float64{540.1, 544.22},
		ZKinetic:      []float64{0.1, 1.234},
		ZSlope:        []float64{0, -0.5},
		ROC:           []float64{0, 2.5},
		AvgAbsKinetic: 0.81,
		Strategies: []domain.StrategyOutcome{
			{
				Kind:      domain.StrategySum,
				Threshold: -0.3,
				Result: domain.BacktestResult{
					Trades: []domain.Trade{{
						Direction: domain.Short, EntryDate: entry, EntryPrice: 550,
						ExitDate: asOf, ExitPrice: 544.22, Open: true, PnLPct: 1.05,
					}},
					Stats: domain.BacktestStats{InitialCapital: 1000, FinalCapital: 1000, TotalTrades: 1, WinRate: 100},
				},
			},
		},
		Spectral: domain.SpectralModel{
			N:          256,
			Components: []domain.Component{{Period: 32, Amplitude: 0.0421, Phase: 1.2}},
		},
		Forecast: domain.Forecast{
			Horizon:     2,
			FutureDates: []time.Time{asOf.AddDate(0, 0, 3), asOf.AddDate(0, 0, 4)},
			Base:        []float64{540, 544, 546, 549.5},
			Scenarios:   [][]float64{{540, 544, 546, 549.5}, {540, 544, 545, 547}},
		},
	}
}

func TestConsole_NotifyAnalysis(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, n.NotifyAnalysis(context.Background(), makeReport()))

	out := buf.String()
	assert.Contains(t, out, "SPY @ 2024-06-28")
	assert.Contains(t, out, "544.22")
	assert.Contains(t, out, "SUM")
	assert.Contains(t, out, "SHORT 1.05%")
	assert.Contains(t, out, "OPEN")
	assert.Contains(t, out, "0.0421")
	assert.Contains(t, out, "549.50")
	assert.Contains(t, out, "547.00 .. 549.50")
}

func TestConsole_NotifyAnalysis_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, n.NotifyAnalysis(context.Background(), makeReport()))
	out := buf.String()
	assert.Contains(t, out, "SUM 0.0% SHORT 1.05%")
	assert.NotContains(t, out, "Period")
}

func TestConsole_NotifyAnalysis_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)
	require.NoError(t, n.NotifyAnalysis(context.Background(), domain.AnalysisReport{Ticker: "X"}))
	assert.Contains(t, buf.String(), "sin datos")
}

func TestConsole_NotifyForecast(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)
	require.NoError(t, n.NotifyForecast(context.Background(), makeReport()))

	out := buf.String()
	assert.Contains(t, out, "SPY forecast 2 barras")
	assert.Contains(t, out, "2024-07-01")
	assert.Contains(t, out, "2024-07-02")
	assert.Contains(t, out, "545.00")
	assert.Contains(t, out, "547.00")

	buf.Reset()
	require.NoError(t, n.NotifyForecast(context.Background(), domain.AnalysisReport{Ticker: "X"}))
	assert.Contains(t, buf.String(), "sin proyección")
}

func TestConsole_NotifyScan(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false)

	results := []domain.ScanResult{
		{Ticker: "AAPL", AsOf: asOf, Price: 210.5, ChangePct: -0.42, ZKinetic: 2.1,
			Sum: domain.StrategySnapshot{InPosition: true, Direction: domain.Long, OpenPnLPct: 3.2}},
		{Ticker: "QQQ", AsOf: asOf, Price: 480, Stable: domain.StableSnapshot{InPosition: true, Direction: domain.Long, EntryDate: asOf}},
	}
	require.NoError(t, n.NotifyScan(context.Background(), results))

	out := buf.String()
	assert.Contains(t, out, "2 tickers")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "LONG 3.20%")
	assert.Contains(t, out, "LONG since 06-28")
}

func TestConsole_NotifyScan_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true)
	require.NoError(t, n.NotifyScan(context.Background(), nil))
	assert.Contains(t, buf.String(), "no tickers scanned")
}

func TestConsole_NotifyIntegrity(t *testing.T) {
	var buf bytes.Buffer
	var n ports.Notifier = notify.NewConsoleWriter(&buf, false)

	clean := domain.IntegrityReport{Ticker: "SPY", Strategy: domain.StrategyLive, Replays: 40, TotalTrades: 7}
	require.NoError(t, n.NotifyIntegrity(context.Background(), clean))
	assert.Contains(t, buf.String(), "CLEAN")

	buf.Reset()
	bad := clean
	bad.Corrupted = []domain.TradeChange{{
		EntryDate:   asOf,
		FirstSeen:   domain.Trade{Direction: domain.Long, EntryPrice: 99.5},
		FirstSeenAt: asOf.AddDate(0, 0, 5),
		Changes:     []string{"direction: LONG→SHORT"},
	}}
	require.NoError(t, n.NotifyIntegrity(context.Background(), bad))
	out := buf.String()
	assert.Contains(t, out, "CORRUPTED")
	assert.Contains(t, out, "direction: LONG→SHORT")
	assert.Contains(t, out, "99.50")
}
