package spectral

import (
	"math"
	"math/rand/v2"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"gonum.org/v1/gonum/stat/distuv"
)

// Options configures Extrapolate.
type Options struct {
	Horizon     int     // future steps beyond the window
	Scenarios   int     // total scenarios, the first one is never jittered
	PhaseJitter float64 // stddev of the per-component phase noise (radians)
	AmpScale    float64 // amplitude multiplier, 0 means 1
	Seed        uint64
}

// DefaultOptions mirrors the dashboard defaults: 60 steps, 5 scenarios, 0.8 rad.
func DefaultOptions() Options {
	return Options{Horizon: 60, Scenarios: 5, PhaseJitter: 0.8, AmpScale: 1}
}

// Extrapolate continues the linear log-trend and re-synthesizes the cycles
// over N+Horizon indices. Scenario 0 is the base case; the others draw
// independent N(0, PhaseJitter) offsets per component. With no components the
// result is a pure-trend projection.
func Extrapolate(m domain.SpectralModel, opts Options) (domain.Forecast, error) {
	const op = "spectral.Extrapolate"
	if m.N < minSamples {
		return domain.Forecast{}, domain.Insufficient(op, minSamples, m.N)
	}
	if opts.Horizon < 0 {
		return domain.Forecast{}, domain.Invalid(op, "horizon must be >= 0, got %d", opts.Horizon)
	}
	if opts.Scenarios < 1 {
		opts.Scenarios = 1
	}
	if opts.AmpScale == 0 {
		opts.AmpScale = 1
	}

	total := m.N + opts.Horizon
	index := make([]int, total)
	for t := range index {
		index[t] = t
	}

	noise := distuv.Normal{
		Mu:    0,
		Sigma: math.Max(opts.PhaseJitter, 0),
		Src:   rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15),
	}

	scenarios := make([][]float64, opts.Scenarios)
	for s := range scenarios {
		var jitter []float64
		if s > 0 && opts.PhaseJitter > 0 {
			jitter = make([]float64, len(m.Components))
			for i := range jitter {
				jitter[i] = noise.Rand()
			}
		}
		path := make([]float64, total)
		for t := range path {
			ft := float64(t)
			path[t] = math.Exp(m.Trend.At(ft) + Cycles(m.Components, ft, opts.AmpScale, jitter))
		}
		scenarios[s] = path
	}

	f := domain.Forecast{
		Horizon:   opts.Horizon,
		Index:     index,
		Base:      scenarios[0],
		Scenarios: scenarios,
	}
	if len(m.Dates) > 0 && opts.Horizon > 0 {
		ps, err := seriesFromModel(m)
		if err == nil {
			f.FutureDates = ps.FutureDates(opts.Horizon)
		}
	}
	return f, nil
}

// Continue returns only the horizon synthesized prices of the base scenario,
// used to splice a synthetic future onto observed history.
func Continue(m domain.SpectralModel, horizon int) []float64 {
	out := make([]float64, horizon)
	for h := range out {
		ft := float64(m.N + h)
		out[h] = math.Exp(m.Trend.At(ft) + Cycles(m.Components, ft, 1, nil))
	}
	return out
}

func seriesFromModel(m domain.SpectralModel) (domain.PriceSeries, error) {
	pts := make([]domain.PricePoint, len(m.Dates))
	for i := range pts {
		pts[i] = domain.PricePoint{Time: m.Dates[i], Value: m.Prices[i]}
	}
	return domain.NewPriceSeries("", pts)
}
