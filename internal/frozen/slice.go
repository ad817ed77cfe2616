package frozen

import (
	"sort"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/signal"
)

// NormalizeOptions configura Renormalize.
type NormalizeOptions struct {
	ZScore signal.ZScoreOptions
	Filter signal.IIR
	Smooth bool // aplicar Filter (fase cero) a ZSum
}

// DefaultNormalize: z-score 252/20/1e-6 y Butterworth de orden 2 a 0.05.
func DefaultNormalize() NormalizeOptions {
	return NormalizeOptions{
		ZScore: signal.DefaultZScore(),
		Filter: signal.DefaultLowPass(),
		Smooth: true,
	}
}

// Normalized es la vista frozen de una historia truncada: columnas en bruto
// más las transformaciones recalculadas sobre ese mismo tramo.
type Normalized struct {
	Dates      []time.Time
	Kinetic    []float64
	Potential  []float64
	RawSum     []float64
	Path       []float64
	GhostSlope []float64

	ZKinetic   []float64
	ZPotential []float64
	ZSum       []float64 // z-score de RawSum, filtrado si Smooth
	ZGhost     []float64
}

// Len devuelve el número de puntos.
func (n Normalized) Len() int { return len(n.Dates) }

// Slice devuelve la historia hasta el último punto con fecha <= cutoff.
// Un cutoff zero devuelve una copia completa.
func Slice(h domain.FrozenHistory, cutoff time.Time) domain.FrozenHistory {
	end := len(h.Points)
	if !cutoff.IsZero() {
		end = sort.Search(len(h.Points), func(i int) bool { return h.Points[i].Date.After(cutoff) })
	}
	out := h
	out.Points = append([]domain.FrozenPoint(nil), h.Points[:end]...)
	if !cutoff.IsZero() && cutoff.Before(out.SeriesEnd) {
		out.SeriesEnd = cutoff
	}
	return out
}

// Renormalize recalcula z-scores y filtro sobre las columnas en bruto de h.
// Nunca recibe una serie ya normalizada: h debe estar truncada al instante
// que se evalúa, porque el filtro de fase cero lee todo el array.
func Renormalize(h domain.FrozenHistory, opts NormalizeOptions) Normalized {
	n := Normalized{
		Dates:      h.Dates(),
		Kinetic:    h.Column(func(p domain.FrozenPoint) float64 { return p.Kinetic }),
		Potential:  h.Column(func(p domain.FrozenPoint) float64 { return p.Potential }),
		RawSum:     h.Column(func(p domain.FrozenPoint) float64 { return p.RawSum }),
		Path:       h.Column(func(p domain.FrozenPoint) float64 { return p.Path }),
		GhostSlope: h.Column(func(p domain.FrozenPoint) float64 { return p.GhostSlope }),
	}
	n.ZKinetic = signal.RollingZScore(n.Kinetic, opts.ZScore)
	n.ZPotential = signal.RollingZScore(n.Potential, opts.ZScore)
	n.ZGhost = signal.RollingZScore(n.GhostSlope, opts.ZScore)

	zsum := signal.RollingZScore(n.RawSum, opts.ZScore)
	if opts.Smooth && len(opts.Filter.A) > 0 {
		zsum = signal.Sanitize(opts.Filter.FiltFilt(zsum))
	}
	n.ZSum = zsum
	return n
}

// SliceAndRenormalize trunca en cutoff y recalcula desde cero sobre el tramo.
func SliceAndRenormalize(h domain.FrozenHistory, cutoff time.Time, opts NormalizeOptions) Normalized {
	return Renormalize(Slice(h, cutoff), opts)
}

// Align proyecta una columna frozen sobre el calendario de precios.
// Las fechas sin punto frozen (warm-up o huecos) reciben fill.
func (n Normalized) Align(calendar []time.Time, column []float64, fill float64) []float64 {
	return signal.AlignByDate(calendar, n.Dates, column, fill)
}
