// Package mechanics computes the least-action fair-value trajectory of a price
// series: the path x* that balances inertia (α) against fidelity (β) to the
// exponential moving average F.
package mechanics

import (
	"math"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/signal"
	"gonum.org/v1/gonum/floats"
)

const (
	minSamples = 3

	residualWindow = 20
	residualSpan   = 10
)

// Solve computes the full ActionTrajectory for prices.
//
// The path minimizes Σ ½α(x[t+1]-x[t])² + ½β(x[t]-F[t])², whose normal
// equations form a symmetric tridiagonal system:
//
//	diag  = β+2α (interior), β+α (endpoints)
//	off   = -α
//	rhs   = β·F
//
// solved exactly in O(n).
func Solve(prices []float64, p domain.ActionParams) (domain.ActionTrajectory, error) {
	const op = "mechanics.Solve"
	if err := validate(op, p); err != nil {
		return domain.ActionTrajectory{}, err
	}
	n := len(prices)
	if n < minSamples {
		return domain.ActionTrajectory{}, domain.Insufficient(op, minSamples, n)
	}
	for i, v := range prices {
		if !(v > 0) || math.IsInf(v, 0) {
			return domain.ActionTrajectory{}, domain.Invalid(op, "non-positive or non-finite price at index %d", i)
		}
	}

	fundamental := signal.EMA(prices, p.EMASpan)
	path := solveTridiagonal(systemDiagonals(n, p.Alpha, p.Beta, fundamental))

	slope := signal.Diff(path)
	kinetic := make([]float64, n)
	potential := make([]float64, n)
	for t := 0; t < n; t++ {
		kinetic[t] = 0.5 * p.Alpha * slope[t] * slope[t]
		d := path[t] - fundamental[t]
		potential[t] = 0.5 * p.Beta * d * d
	}

	density := make([]float64, n)
	floats.AddTo(density, kinetic, potential)
	cumulative := floats.CumSum(make([]float64, n), density)

	return domain.ActionTrajectory{
		Params:      p,
		Fundamental: fundamental,
		Path:        path,
		Slope:       slope,
		Kinetic:     kinetic,
		Potential:   potential,
		Cumulative:  cumulative,
		ZResidual:   zResidual(prices, fundamental),
	}, nil
}

// SolveSeries is Solve over a validated PriceSeries.
func SolveSeries(ps domain.PriceSeries, p domain.ActionParams) (domain.ActionTrajectory, error) {
	return Solve(ps.Values(), p)
}

func validate(op string, p domain.ActionParams) error {
	if !(p.Alpha > 0) {
		return domain.Invalid(op, "alpha must be > 0, got %v", p.Alpha)
	}
	if !(p.Beta > 0) {
		return domain.Invalid(op, "beta must be > 0, got %v", p.Beta)
	}
	if p.EMASpan < 1 {
		return domain.Invalid(op, "ema span must be >= 1, got %d", p.EMASpan)
	}
	return nil
}

// tridiagonal is the banded system lower·x[i-1] + diag·x[i] + upper·x[i+1] = rhs.
// lower[i] couples row i+1 to column i; upper[i] couples row i to column i+1.
type tridiagonal struct {
	lower []float64
	diag  []float64
	upper []float64
	rhs   []float64
}

func systemDiagonals(n int, alpha, beta float64, fundamental []float64) tridiagonal {
	sys := tridiagonal{
		lower: make([]float64, n-1),
		diag:  make([]float64, n),
		upper: make([]float64, n-1),
		rhs:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		sys.diag[i] = beta + 2*alpha
		sys.rhs[i] = beta * fundamental[i]
	}
	sys.diag[0] = beta + alpha
	sys.diag[n-1] = beta + alpha
	for i := 0; i < n-1; i++ {
		sys.lower[i] = -alpha
		sys.upper[i] = -alpha
	}
	return sys
}

// solveTridiagonal runs the Thomas algorithm. The system built by
// systemDiagonals is strictly diagonally dominant, so no pivoting is needed.
func solveTridiagonal(sys tridiagonal) []float64 {
	n := len(sys.diag)
	c := make([]float64, n-1)
	d := make([]float64, n)

	c[0] = sys.upper[0] / sys.diag[0]
	d[0] = sys.rhs[0] / sys.diag[0]
	for i := 1; i < n; i++ {
		denom := sys.diag[i] - sys.lower[i-1]*c[i-1]
		if i < n-1 {
			c[i] = sys.upper[i] / denom
		}
		d[i] = (sys.rhs[i] - sys.lower[i-1]*d[i-1]) / denom
	}

	x := make([]float64, n)
	x[n-1] = d[n-1]
	for i := n - 2; i >= 0; i-- {
		x[i] = d[i] - c[i]*x[i+1]
	}
	return x
}

// zResidual is the z-score of price-F over a trailing 20-sample window with
// no variance floor, then smoothed with a bias-corrected EMA of span 10.
func zResidual(prices, fundamental []float64) []float64 {
	div := make([]float64, len(prices))
	floats.SubTo(div, prices, fundamental)
	z := signal.RollingZScore(div, signal.ZScoreOptions{
		Window:     residualWindow,
		MinPeriods: residualWindow,
	})
	return signal.Sanitize(signal.EMAAdjusted(z, residualSpan))
}
