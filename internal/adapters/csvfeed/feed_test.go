package csvfeed_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/fairpath/internal/adapters/csvfeed"
	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestFeed_Fetch(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "SPY.csv", `Date,Open,High,Low,Close,Volume
2024-01-03,470,471,468,469.5,100
2024-01-02,472,473,470,471.25,100
2024-01-04,,,,,
2024-01-05,468,470,467,nan,100
2024-01-08,469,472,468,472.0,100
2024-01-03,470,471,468,470.0,100
`)

	ps, err := csvfeed.New(dir).Fetch(context.Background(), "spy")
	require.NoError(t, err)
	assert.Equal(t, "SPY", ps.Ticker())
	// Ordenado, sin filas vacías ni NaN, el duplicado se queda con la última fila
	assert.Equal(t, []float64{471.25, 470.0, 472.0}, ps.Values())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), ps.First().Time)
}

func TestFeed_AlternativeColumns(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "BTC.csv", "\ufefftimestamp,price\n2024-01-01T00:00:00Z,42000\n2024-01-01T01:00:00Z,42100.5\n")

	ps, err := csvfeed.New(dir).Fetch(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 2, ps.Len())
	assert.Equal(t, time.Hour, ps.Last().Time.Sub(ps.First().Time))
}

func TestFeed_Errors(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "BAD.csv", "when,value\n2024-01-01,1\n")
	feed := csvfeed.New(dir)

	_, err := feed.Fetch(context.Background(), "MISSING")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = feed.Fetch(context.Background(), "BAD")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = feed.Fetch(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = feed.Fetch(ctx, "BAD")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFeed_Tickers(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "qqq.csv", "date,close\n")
	writeCSV(t, dir, "SPY.CSV", "date,close\n")
	writeCSV(t, dir, "notes.txt", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	var p ports.PriceProvider = csvfeed.New(dir)
	got, err := p.Tickers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"QQQ", "SPY"}, got)

	_, err = csvfeed.New(filepath.Join(dir, "nope")).Tickers(context.Background())
	assert.Error(t, err)
}

func TestFeed_FetchIgnoresFileCase(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "qqq.csv", "date,close\n2024-01-02,400\n2024-01-03,401\n")

	ps, err := csvfeed.New(dir).Fetch(context.Background(), "QQQ")
	require.NoError(t, err)
	assert.Equal(t, 2, ps.Len())
}
