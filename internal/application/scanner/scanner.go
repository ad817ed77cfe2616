// Package scanner es el radar: analiza muchos tickers en paralelo y resume el
// estado de cada estrategia en un domain.ScanResult.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/fairpath/internal/application/analysis"
	"github.com/alejandrodnm/fairpath/internal/backtest"
	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/ports"
	"github.com/alejandrodnm/fairpath/internal/signal"
)

// Analyzer produce el análisis completo de un ticker.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (domain.AnalysisReport, error)
}

// Config contiene la configuración del radar.
type Config struct {
	Workers    int // goroutines de análisis (0 = NumCPU)
	MinHistory int // barras mínimas para incluir un ticker
	UseCache   bool
	Start      time.Time // la serie de cada ticker empieza aquí (zero = todo)
	ZScore     signal.ZScoreOptions
	Stable     backtest.StableOptions
}

// DefaultConfig: 5 workers, 100 barras mínimas, estrategia stable LONG.
func DefaultConfig() Config {
	return Config{
		Workers:    5,
		MinHistory: 100,
		UseCache:   true,
		ZScore:     signal.DefaultZScore(),
		Stable:     backtest.DefaultStable(),
	}
}

// Scanner orquesta fetch → análisis concurrente → notificación → persistencia.
type Scanner struct {
	cfg      Config
	prices   ports.PriceProvider
	analyzer Analyzer
	store    ports.ScanStore
	notifier ports.Notifier
}

// New crea un Scanner con todas las dependencias inyectadas. store y
// notifier pueden ser nil.
func New(cfg Config, prices ports.PriceProvider, analyzer Analyzer, store ports.ScanStore, notifier ports.Notifier) *Scanner {
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = 100
	}
	return &Scanner{cfg: cfg, prices: prices, analyzer: analyzer, store: store, notifier: notifier}
}

// Scan analiza tickers (todos los del provider si está vacío) y devuelve los
// resultados en el orden de entrada, omitiendo los que fallan.
func (s *Scanner) Scan(ctx context.Context, tickers []string) ([]domain.ScanResult, error) {
	if len(tickers) == 0 {
		all, err := s.prices.Tickers(ctx)
		if err != nil {
			return nil, fmt.Errorf("scanner.Scan: list tickers: %w", err)
		}
		tickers = all
	}
	if len(tickers) == 0 {
		return nil, nil
	}

	results := s.scanConcurrent(ctx, tickers, s.cfg.Workers)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scanner.Scan: %w", err)
	}
	return results, nil
}

// RunOnce ejecuta un ciclo completo: scan, alertas contra el ciclo anterior,
// notificación y persistencia.
func (s *Scanner) RunOnce(ctx context.Context, tickers []string) ([]domain.ScanResult, error) {
	start := time.Now()

	results, err := s.Scan(ctx, tickers)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		prev, err := s.store.GetScans(ctx, start.Add(-7*24*time.Hour), start)
		if err != nil {
			slog.Warn("scan history unavailable", "err", err)
		} else {
			emitSignalAlerts(prev, results)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyScan(ctx, results); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	if s.store != nil {
		if err := s.store.SaveScan(ctx, results); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	inPos := 0
	for _, r := range results {
		if r.Sum.InPosition {
			inPos++
		}
	}
	slog.Info("scan cycle complete",
		"tickers", len(results),
		"sum_in_position", inPos,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return results, nil
}

// scanOne analiza un ticker y construye su ScanResult.
func (s *Scanner) scanOne(ctx context.Context, ticker string) (domain.ScanResult, error) {
	rep, err := s.analyzer.Analyze(ctx, analysis.Request{Ticker: ticker, Start: s.cfg.Start, UseCache: s.cfg.UseCache})
	if err != nil {
		return domain.ScanResult{}, err
	}
	n := len(rep.Prices)
	if n < s.cfg.MinHistory {
		return domain.ScanResult{}, domain.Insufficient("scanner.scanOne", s.cfg.MinHistory, n)
	}

	res := domain.ScanResult{
		Ticker:        rep.Ticker,
		AsOf:          rep.AsOf,
		Price:         rep.Prices[n-1],
		ZKinetic:      last(rep.ZKinetic),
		ZSlope:        last(rep.ZSlope),
		ZPotential:    last(signal.RollingZScore(rep.Trajectory.Potential, s.cfg.ZScore)),
		AvgAbsKinetic: rep.AvgAbsKinetic,
	}
	if n > 1 {
		res.ChangePct = (rep.Prices[n-1] - rep.Prices[n-2]) / rep.Prices[n-2] * 100
	}
	if o, ok := rep.Strategy(domain.StrategyFrozen); ok {
		res.Frozen = snapshot(o.Result)
	}
	if o, ok := rep.Strategy(domain.StrategySum); ok {
		res.Sum = snapshot(o.Result)
	}

	ps, err := seriesFromReport(rep)
	if err != nil {
		return domain.ScanResult{}, err
	}
	st, err := backtest.Stable(ps, s.cfg.Stable)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("scanner: stable %s: %w", ticker, err)
	}
	res.Stable = st.Snapshot
	return res, nil
}

// snapshot resume el estado final de un backtest.
func snapshot(r domain.BacktestResult) domain.StrategySnapshot {
	s := domain.StrategySnapshot{
		Trades:      len(r.Trades),
		TotalReturn: r.Stats.TotalReturn,
	}
	if t, ok := r.OpenTrade(); ok {
		s.InPosition = true
		s.Direction = t.Direction
		s.EntryDate = t.EntryDate
		s.OpenPnLPct = t.PnLPct
	}
	return s
}

// emitSignalAlerts registra las posiciones SUM abiertas desde el último scan.
func emitSignalAlerts(prev, curr []domain.ScanResult) {
	before := make(map[string]domain.StrategySnapshot, len(prev))
	for _, p := range prev {
		before[p.Ticker] = p.Sum
	}
	for _, r := range curr {
		if !r.Sum.InPosition {
			continue
		}
		old, seen := before[r.Ticker]
		if seen && old.InPosition && old.Direction == r.Sum.Direction {
			continue // ya conocido
		}
		slog.Warn("NEW SUM SIGNAL",
			"ticker", r.Ticker,
			"direction", r.Sum.Direction,
			"entry", r.Sum.EntryDate.Format(time.DateOnly),
			"price", fmt.Sprintf("%.2f", r.Price),
			"z_kinetic", fmt.Sprintf("%.2f", r.ZKinetic),
		)
	}
}

func seriesFromReport(rep domain.AnalysisReport) (domain.PriceSeries, error) {
	pts := make([]domain.PricePoint, len(rep.Prices))
	for i := range pts {
		pts[i] = domain.PricePoint{Time: rep.Dates[i], Value: rep.Prices[i]}
	}
	return domain.NewPriceSeries(rep.Ticker, pts)
}

func last(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return x[len(x)-1]
}
