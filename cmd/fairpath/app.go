package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/alejandrodnm/fairpath/config"
	"github.com/alejandrodnm/fairpath/internal/adapters/csvfeed"
	"github.com/alejandrodnm/fairpath/internal/adapters/metrics"
	"github.com/alejandrodnm/fairpath/internal/adapters/notify"
	"github.com/alejandrodnm/fairpath/internal/adapters/storage"
	"github.com/alejandrodnm/fairpath/internal/application/analysis"
	"github.com/alejandrodnm/fairpath/internal/application/scanner"
	"github.com/alejandrodnm/fairpath/internal/backtest"
	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/ports"
	"github.com/alejandrodnm/fairpath/internal/signal"
)

// frozenCache es lo que ofrecen los dos stores: caché frozen + Close.
type frozenCache interface {
	ports.FrozenStore
	io.Closer
}

// app agrupa las dependencias construidas a partir de la configuración.
type app struct {
	cfg      *config.Config
	prices   *csvfeed.Feed
	store    frozenCache
	scans    ports.ScanStore // nil con driver memory
	recorder *metrics.Recorder
	console  *notify.Console
	analysis *analysis.Service
}

func newApp(cfg *config.Config, out io.Writer, compact bool) (*app, error) {
	a := &app{
		cfg:      cfg,
		prices:   csvfeed.New(cfg.Data.Dir),
		recorder: metrics.NewRecorder(),
		console:  notify.NewConsoleWriter(out, compact),
	}

	switch cfg.Storage.Driver {
	case "sqlite":
		s, err := storage.NewSQLiteStore(cfg.Storage.DSN, cfg.MaxAge())
		if err != nil {
			return nil, fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
		}
		a.store, a.scans = s, s
	default:
		a.store = storage.NewMemoryStore(cfg.MaxAge())
	}

	a.analysis = analysis.NewService(a.prices, a.store, a.recorder, analysisConfig(cfg))
	return a, nil
}

func (a *app) newScanner() (*scanner.Scanner, error) {
	sc, err := scannerConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return scanner.New(sc, a.prices, a.analysis, a.scans, a.console), nil
}

// Close vuelca las métricas (si hay textfile) y cierra el store.
func (a *app) Close() error {
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := a.recorder.WriteTextfile(path); err != nil {
			slog.Warn("metrics textfile failed", "path", path, "err", err)
		}
	}
	return a.store.Close()
}

func analysisConfig(cfg *config.Config) analysis.Config {
	ac := analysis.DefaultConfig()
	ac.Action = domain.ActionParams{
		Alpha:   cfg.Analysis.Alpha,
		Beta:    cfg.Analysis.Beta,
		EMASpan: cfg.Analysis.EMASpan,
	}
	ac.TopK = cfg.Analysis.TopK
	ac.SpectralWindow = *cfg.Analysis.Window
	ac.Forecast.Horizon = cfg.Analysis.ForecastDays
	ac.Forecast.Scenarios = cfg.Analysis.Scenarios
	ac.Forecast.PhaseJitter = cfg.Analysis.PhaseJitter
	ac.Forecast.Seed = cfg.Analysis.Seed

	ac.Frozen.Lag = cfg.Frozen.Lag
	ac.Frozen.MinPoints = cfg.Frozen.MinPoints
	ac.Frozen.Stride = cfg.Frozen.Stride
	ac.Frozen.Lookback = cfg.Frozen.Lookback
	ac.Frozen.GhostHorizon = *cfg.Frozen.GhostHorizon
	ac.Frozen.Workers = cfg.Frozen.Workers

	ac.ZScore = signal.ZScoreOptions{
		Window:     cfg.ZScore.Window,
		MinPeriods: cfg.ZScore.MinPeriods,
		Epsilon:    cfg.ZScore.Epsilon,
	}
	ac.Normalize.ZScore = ac.ZScore

	ac.InitialCapital = cfg.Backtest.InitialCapital
	ac.SumThreshold = *cfg.Backtest.SumThreshold
	ac.Sentinel = *cfg.Backtest.Sentinel
	return ac
}

func scannerConfig(cfg *config.Config) (scanner.Config, error) {
	mode, err := backtest.ParseStableMode(cfg.Backtest.StableMode)
	if err != nil {
		return scanner.Config{}, fmt.Errorf("backtest.stable_mode: %w", err)
	}
	sc := scanner.DefaultConfig()
	sc.Workers = cfg.Scanner.Workers
	sc.MinHistory = cfg.Scanner.MinHistory
	sc.Start = cfg.StartDate()
	sc.ZScore = signal.ZScoreOptions{
		Window:     cfg.ZScore.Window,
		MinPeriods: cfg.ZScore.MinPeriods,
		Epsilon:    cfg.ZScore.Epsilon,
	}
	sc.Stable.Alpha = cfg.Backtest.StableAlpha
	sc.Stable.Mode = mode
	return sc, nil
}
