// Package analysis orquesta el análisis completo de un ticker: solver en vivo,
// historia frozen (con caché), las cuatro estrategias, espectro y forecast.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/frozen"
	"github.com/alejandrodnm/fairpath/internal/mechanics"
	"github.com/alejandrodnm/fairpath/internal/ports"
	"github.com/alejandrodnm/fairpath/internal/signal"
	"github.com/alejandrodnm/fairpath/internal/spectral"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Config agrupa los parámetros de un análisis.
type Config struct {
	Action         domain.ActionParams
	TopK           int
	SpectralWindow int // últimas W barras; <= 0 = toda la serie
	Forecast       spectral.Options
	Frozen         frozen.Options
	Normalize      frozen.NormalizeOptions
	ZScore         signal.ZScoreOptions
	ROCPeriod      int
	InitialCapital float64
	SumThreshold   float64
	Sentinel       float64
}

// DefaultConfig: α=200, β=1, top 5 ciclos sobre 252 barras, forecast 60
// barras, SUM a -0.3.
func DefaultConfig() Config {
	return Config{
		Action:         domain.DefaultActionParams(),
		TopK:           spectral.DefaultTopK,
		SpectralWindow: spectral.DefaultWindow,
		Forecast:       spectral.DefaultOptions(),
		Frozen:         frozenDefaults(),
		Normalize:      frozen.DefaultNormalize(),
		ZScore:         signal.DefaultZScore(),
		ROCPeriod:      20,
		InitialCapital: 1000,
		SumThreshold:   -0.3,
		Sentinel:       -999,
	}
}

func frozenDefaults() frozen.Options {
	o := frozen.DefaultOptions()
	o.GhostHorizon = 10
	return o
}

// Request es una petición de análisis.
type Request struct {
	Ticker   string
	Start    time.Time // la serie empieza aquí (zero = todo el histórico)
	End      time.Time // simula el pasado: solo datos <= End (zero = hasta hoy)
	UseCache bool
}

// Service implementa el caso de uso "analizar un ticker".
type Service struct {
	prices  ports.PriceProvider
	store   ports.FrozenStore
	metrics ports.Metrics
	cfg     Config
}

// NewService crea el servicio. store y metrics pueden ser nil.
func NewService(prices ports.PriceProvider, store ports.FrozenStore, metrics ports.Metrics, cfg Config) *Service {
	cfg.Frozen.Action = cfg.Action
	if cfg.ROCPeriod <= 0 {
		cfg.ROCPeriod = 20
	}
	return &Service{prices: prices, store: store, metrics: metrics, cfg: cfg}
}

// Config devuelve la configuración efectiva.
func (s *Service) Config() Config { return s.cfg }

// Analyze ejecuta el análisis completo de req.Ticker.
func (s *Service) Analyze(ctx context.Context, req Request) (rep domain.AnalysisReport, err error) {
	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAnalysis(req.Ticker, time.Since(started), err)
		}
	}()

	ps, err := s.load(ctx, req.Ticker, req.Start)
	if err != nil {
		return domain.AnalysisReport{}, err
	}
	view := ps
	if !req.End.IsZero() {
		view = ps.Until(req.End)
	}
	if view.Len() == 0 {
		return domain.AnalysisReport{}, domain.Insufficient("analysis.Analyze", 1, 0)
	}

	hist, err := s.frozenHistory(ctx, ps, view.Last().Time, req.UseCache)
	if err != nil {
		return domain.AnalysisReport{}, err
	}

	ev, err := s.evaluate(view, hist)
	if err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("analysis.Analyze: %s: %w", view.Ticker(), err)
	}
	if s.metrics != nil {
		for _, o := range ev.outcomes {
			s.metrics.ObserveTrades(o.Kind, len(o.Result.Trades))
		}
	}

	model, err := spectral.Fit(view, s.cfg.TopK, s.cfg.SpectralWindow)
	if err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("analysis.Analyze: spectral: %w", err)
	}
	forecast, err := spectral.Extrapolate(model, s.cfg.Forecast)
	if err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("analysis.Analyze: forecast: %w", err)
	}

	rep = domain.AnalysisReport{
		RunID:         uuid.New(),
		Ticker:        view.Ticker(),
		AsOf:          view.Last().Time,
		Dates:         view.Dates(),
		Prices:        view.Values(),
		Trajectory:    ev.trajectory,
		ZKinetic:      ev.zKinetic,
		ZSlope:        ev.zSlope,
		ROC:           ev.roc,
		ZROC:          signal.RollingZScore(ev.roc, s.cfg.ZScore),
		AvgAbsKinetic: meanAbs(ev.zKinetic),
		Strategies:    ev.outcomes,
		Spectral:      model,
		Forecast:      forecast,
		FrozenDates:   ev.frozen.Dates,
		ZFrozenPot:    ev.frozen.ZPotential,
		ZFrozenSum:    ev.frozen.ZSum,
	}

	slog.Info("analysis done",
		"ticker", rep.Ticker,
		"run_id", rep.RunID,
		"as_of", rep.AsOf.Format(time.DateOnly),
		"samples", len(rep.Prices),
		"frozen_points", len(rep.FrozenDates),
		"duration", time.Since(started).Round(time.Millisecond),
	)
	return rep, nil
}

// load obtiene la serie y la recorta a partir de start.
func (s *Service) load(ctx context.Context, ticker string, start time.Time) (domain.PriceSeries, error) {
	ps, err := s.prices.Fetch(ctx, ticker)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("analysis: fetch %s: %w", ticker, err)
	}
	if !start.IsZero() {
		ps = ps.Between(start, time.Time{})
	}
	return ps, nil
}

// frozenHistory devuelve la historia frozen de ps válida hasta cutoff,
// reutilizando la caché si cubre la serie con los mismos params.
func (s *Service) frozenHistory(ctx context.Context, ps domain.PriceSeries, cutoff time.Time, useCache bool) (domain.FrozenHistory, error) {
	if ps.Len() == 0 {
		return domain.FrozenHistory{Ticker: ps.Ticker(), Params: s.cfg.Frozen.FrozenParams}, nil
	}
	cacheable := useCache && s.store != nil

	if cacheable {
		h, err := s.store.Load(ctx, ps.Ticker(), s.cfg.Frozen.FrozenParams)
		switch {
		case err == nil && h.Covers(ps.First().Time, cutoff):
			s.cacheLookup(true)
			slog.Debug("frozen cache hit", "ticker", ps.Ticker(), "points", h.Len())
			return h, nil
		case err != nil && !errors.Is(err, ports.ErrCacheMiss):
			slog.Warn("frozen cache load failed", "ticker", ps.Ticker(), "err", err)
		}
		s.cacheLookup(false)
	}

	started := time.Now()
	h, err := frozen.Build(ctx, ps, s.cfg.Frozen)
	if err != nil {
		return domain.FrozenHistory{}, fmt.Errorf("analysis: frozen %s: %w", ps.Ticker(), err)
	}
	if s.metrics != nil {
		s.metrics.ObserveFrozenBuild(ps.Ticker(), h.Len(), time.Since(started))
	}

	if cacheable {
		if err := s.store.Save(ctx, h); err != nil {
			slog.Warn("frozen cache save failed", "ticker", ps.Ticker(), "err", err)
		}
	}
	return h, nil
}

func (s *Service) cacheLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.FrozenCache(hit)
	}
}

func meanAbs(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	abs := make([]float64, len(x))
	for i, v := range x {
		if v < 0 {
			v = -v
		}
		abs[i] = v
	}
	return stat.Mean(abs, nil)
}

// solve es un atajo para el solver sobre una serie.
func (s *Service) solve(ps domain.PriceSeries) (domain.ActionTrajectory, error) {
	return mechanics.SolveSeries(ps, s.cfg.Action)
}
