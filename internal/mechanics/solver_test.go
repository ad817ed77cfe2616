package mechanics

import (
	"math"
	"testing"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wave(n int) []float64 {
	out := make([]float64, n)
	for t := range out {
		ft := float64(t)
		out[t] = 100 * math.Exp(0.001*ft+0.04*math.Sin(2*math.Pi*ft/40)+0.01*math.Cos(ft))
	}
	return out
}

func TestSolve_SmallScenario(t *testing.T) {
	prices := []float64{100, 101, 99, 102, 98}
	tr, err := Solve(prices, domain.DefaultActionParams())
	require.NoError(t, err)
	require.Equal(t, 5, tr.Len())

	assert.Zero(t, tr.Kinetic[0])
	assert.Zero(t, tr.Slope[0])

	lo, hi := tr.Fundamental[0], tr.Fundamental[0]
	for _, f := range tr.Fundamental {
		lo, hi = math.Min(lo, f), math.Max(hi, f)
	}
	for i, x := range tr.Path {
		assert.GreaterOrEqual(t, x, lo-1e-9, "index %d", i)
		assert.LessOrEqual(t, x, hi+1e-9, "index %d", i)
	}
}

func TestSolve_Deterministic(t *testing.T) {
	p := wave(300)
	a, err := Solve(p, domain.DefaultActionParams())
	require.NoError(t, err)
	b, err := Solve(p, domain.DefaultActionParams())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSolve_EnergyDefinitions(t *testing.T) {
	params := domain.ActionParams{Alpha: 50, Beta: 2, EMASpan: 10}
	tr, err := Solve(wave(120), params)
	require.NoError(t, err)

	require.Equal(t, signal.EMA(wave(120), 10), tr.Fundamental)
	var cum float64
	for i := 0; i < tr.Len(); i++ {
		if i > 0 {
			assert.InDelta(t, tr.Path[i]-tr.Path[i-1], tr.Slope[i], 1e-12)
		}
		assert.InDelta(t, 0.5*params.Alpha*tr.Slope[i]*tr.Slope[i], tr.Kinetic[i], 1e-12)
		d := tr.Path[i] - tr.Fundamental[i]
		assert.InDelta(t, 0.5*params.Beta*d*d, tr.Potential[i], 1e-12)

		cum += tr.Kinetic[i] + tr.Potential[i]
		assert.InDelta(t, cum, tr.Cumulative[i], 1e-9)
	}
	density := tr.ActionDensity()
	assert.InDelta(t, tr.Cumulative[tr.Len()-1], sum(density), 1e-9)
}

func sum(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}

func TestSolveTridiagonal_RoundTrip(t *testing.T) {
	n := 200
	f := wave(n)
	alpha, beta := 200.0, 1.0
	sys := systemDiagonals(n, alpha, beta, f)
	x := solveTridiagonal(sys)

	for i := 0; i < n; i++ {
		lhs := sys.diag[i] * x[i]
		if i > 0 {
			lhs += sys.lower[i-1] * x[i-1]
		}
		if i < n-1 {
			lhs += sys.upper[i] * x[i+1]
		}
		assert.InDelta(t, sys.rhs[i], lhs, 1e-6, "row %d", i)
	}
}

func TestSystemDiagonals_Endpoints(t *testing.T) {
	sys := systemDiagonals(4, 3, 2, []float64{1, 1, 1, 1})
	assert.Equal(t, []float64{5, 8, 8, 5}, sys.diag)
	assert.Equal(t, []float64{-3, -3, -3}, sys.lower)
	assert.Equal(t, []float64{2, 2, 2, 2}, sys.rhs)
}

func TestSolve_HighAlphaIsSmoother(t *testing.T) {
	p := wave(250)
	loose, err := Solve(p, domain.ActionParams{Alpha: 1, Beta: 1, EMASpan: 20})
	require.NoError(t, err)
	stiff, err := Solve(p, domain.ActionParams{Alpha: 5000, Beta: 1, EMASpan: 20})
	require.NoError(t, err)

	rough := func(x []float64) float64 {
		var s float64
		for i := 2; i < len(x); i++ {
			d := x[i] - 2*x[i-1] + x[i-2]
			s += d * d
		}
		return s
	}
	assert.Less(t, rough(stiff.Path), rough(loose.Path))
}

func TestSolve_Errors(t *testing.T) {
	_, err := Solve([]float64{1, 2}, domain.DefaultActionParams())
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
	var ide *domain.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 3, ide.Need)
	assert.Equal(t, 2, ide.Got)

	_, err = Solve(wave(10), domain.ActionParams{Alpha: 0, Beta: 1, EMASpan: 20})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = Solve(wave(10), domain.ActionParams{Alpha: 1, Beta: -1, EMASpan: 20})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = Solve(wave(10), domain.ActionParams{Alpha: 1, Beta: 1, EMASpan: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	for name, bad := range map[string]float64{"zero": 0, "negative": -3, "nan": math.NaN(), "inf": math.Inf(1)} {
		p := wave(10)
		p[4] = bad
		_, err = Solve(p, domain.DefaultActionParams())
		assert.ErrorIs(t, err, domain.ErrInvalidInput, name)
	}
}

func TestSolve_ZResidualWarmup(t *testing.T) {
	tr, err := Solve(wave(60), domain.DefaultActionParams())
	require.NoError(t, err)
	for i := 0; i < 19; i++ {
		assert.Zero(t, tr.ZResidual[i], "index %d", i)
	}
	for _, v := range tr.ZResidual {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestSolve_IsNotCausal(t *testing.T) {
	// El path resuelto depende de todo el intervalo: añadir datos mueve x*
	// en el pasado. Por eso existe el driver point-in-time.
	p := wave(200)
	full, err := Solve(p, domain.DefaultActionParams())
	require.NoError(t, err)
	cut, err := Solve(p[:150], domain.DefaultActionParams())
	require.NoError(t, err)
	assert.NotEqual(t, full.Path[149], cut.Path[149])
}

// --- GhostSlope ---

func TestGhostSlope_ZeroHorizonIsEndSlope(t *testing.T) {
	p := wave(300)
	tr, err := Solve(p, domain.DefaultActionParams())
	require.NoError(t, err)
	g, err := GhostSlope(p, domain.DefaultActionParams(), GhostOptions{Horizon: 0})
	require.NoError(t, err)
	assert.Equal(t, tr.Slope[len(p)-1], g)
}

func TestGhostSlope_UsesOnlyGivenPrices(t *testing.T) {
	p := wave(320)
	a, err := GhostSlope(p[:280], domain.DefaultActionParams(), DefaultGhost())
	require.NoError(t, err)

	mut := append([]float64(nil), p...)
	for i := 280; i < len(mut); i++ {
		mut[i] *= 3
	}
	b, err := GhostSlope(mut[:280], domain.DefaultActionParams(), DefaultGhost())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGhostSlope_DiffersFromPinnedEnd(t *testing.T) {
	p := wave(300)
	plain, err := GhostSlope(p, domain.DefaultActionParams(), GhostOptions{})
	require.NoError(t, err)
	ghost, err := GhostSlope(p, domain.DefaultActionParams(), DefaultGhost())
	require.NoError(t, err)
	assert.NotEqual(t, plain, ghost)
}
