package signal

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ZScoreOptions configures RollingZScore.
type ZScoreOptions struct {
	Window     int     // trailing window length
	MinPeriods int     // finite samples required before a value is emitted
	Epsilon    float64 // added to the std to floor near-zero variance
}

// DefaultZScore returns window 252, min periods 20, epsilon 1e-6.
func DefaultZScore() ZScoreOptions {
	return ZScoreOptions{Window: 252, MinPeriods: 20, Epsilon: 1e-6}
}

func (o ZScoreOptions) normalized() ZScoreOptions {
	d := DefaultZScore()
	if o.Window <= 0 {
		o.Window = d.Window
	}
	if o.MinPeriods <= 0 {
		o.MinPeriods = 1
	}
	if o.MinPeriods > o.Window {
		o.MinPeriods = o.Window
	}
	if o.Epsilon < 0 {
		o.Epsilon = 0
	}
	return o
}

// RollingZScore normalizes each sample against the mean and sample standard
// deviation of the trailing window x[t-W+1..t]. Only samples at or before t
// are read. Indices with fewer than MinPeriods finite samples yield 0, and
// any non-finite result is replaced with 0.
func RollingZScore(x []float64, opts ZScoreOptions) []float64 {
	opts = opts.normalized()
	out := make([]float64, len(x))
	buf := make([]float64, 0, opts.Window)

	for t := range x {
		if !finite(x[t]) {
			continue
		}
		buf = buf[:0]
		for i := max(0, t-opts.Window+1); i <= t; i++ {
			if finite(x[i]) {
				buf = append(buf, x[i])
			}
		}
		if len(buf) < opts.MinPeriods {
			continue
		}
		mean, std := stat.MeanStdDev(buf, nil)
		out[t] = (x[t] - mean) / (std + opts.Epsilon)
	}
	return sanitize(out)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// sanitize replaces NaN/Inf in place and returns the slice.
func sanitize(x []float64) []float64 {
	for i, v := range x {
		if !finite(v) {
			x[i] = 0
		}
	}
	return x
}

// Sanitize returns a copy of x with NaN/Inf replaced by 0.
func Sanitize(x []float64) []float64 {
	return sanitize(append([]float64(nil), x...))
}
