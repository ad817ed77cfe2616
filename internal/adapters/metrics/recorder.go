// Package metrics implementa ports.Metrics con Prometheus. No expone HTTP:
// el CLI vuelca el registro a un textfile para node_exporter.
package metrics

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder agrupa las métricas de fairpath en un registro propio.
type Recorder struct {
	reg *prometheus.Registry

	FrozenBuildDuration *prometheus.HistogramVec
	FrozenPoints        *prometheus.GaugeVec
	CacheLookups        *prometheus.CounterVec
	AnalysisDuration    *prometheus.HistogramVec
	AnalysisErrors      *prometheus.CounterVec
	Trades              *prometheus.GaugeVec
}

// NewRecorder crea y registra todas las métricas.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),

		FrozenBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fairpath_frozen_build_duration_seconds",
				Help:    "Duration of a point-in-time frozen history build",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"ticker"},
		),
		FrozenPoints: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fairpath_frozen_points",
				Help: "Points in the last frozen history built per ticker",
			},
			[]string{"ticker"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairpath_frozen_cache_lookups_total",
				Help: "Frozen cache lookups by result",
			},
			[]string{"result"},
		),
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fairpath_analysis_duration_seconds",
				Help:    "Duration of a full ticker analysis",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"ticker"},
		),
		AnalysisErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairpath_analysis_errors_total",
				Help: "Failed analyses per ticker",
			},
			[]string{"ticker"},
		),
		Trades: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fairpath_backtest_trades",
				Help: "Trades produced by the last backtest of each strategy",
			},
			[]string{"strategy"},
		),
	}

	r.reg.MustRegister(
		r.FrozenBuildDuration,
		r.FrozenPoints,
		r.CacheLookups,
		r.AnalysisDuration,
		r.AnalysisErrors,
		r.Trades,
	)
	return r
}

// Registry devuelve el registro subyacente.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) ObserveFrozenBuild(ticker string, points int, took time.Duration) {
	r.FrozenBuildDuration.WithLabelValues(ticker).Observe(took.Seconds())
	r.FrozenPoints.WithLabelValues(ticker).Set(float64(points))
}

func (r *Recorder) FrozenCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveAnalysis(ticker string, took time.Duration, err error) {
	r.AnalysisDuration.WithLabelValues(ticker).Observe(took.Seconds())
	if err != nil {
		r.AnalysisErrors.WithLabelValues(ticker).Inc()
	}
}

func (r *Recorder) ObserveTrades(strategy domain.StrategyKind, trades int) {
	r.Trades.WithLabelValues(string(strategy)).Set(float64(trades))
}

// WriteTextfile vuelca el registro en formato texto (atómico, vía rename).
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("metrics.WriteTextfile: %w", err)
	}
	return nil
}

// Nop descarta todas las observaciones.
type Nop struct{}

func (Nop) ObserveFrozenBuild(string, int, time.Duration) {}
func (Nop) FrozenCache(bool)                              {}
func (Nop) ObserveAnalysis(string, time.Duration, error)  {}
func (Nop) ObserveTrades(domain.StrategyKind, int)        {}
