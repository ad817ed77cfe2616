// Package spectral splits a log-price series into a linear trend plus its
// dominant cycles and projects both forward.
package spectral

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultWindow = 252
	DefaultTopK   = 5

	minSamples = 2
	minFreq    = 1e-12
)

// Fit decomposes the trailing window of ps (window <= 0 uses the whole series).
func Fit(ps domain.PriceSeries, topK, window int) (domain.SpectralModel, error) {
	if window > 0 {
		ps = ps.Tail(window)
	}
	m, err := FitValues(ps.Values(), topK, 0)
	if err != nil {
		return domain.SpectralModel{}, err
	}
	m.Dates = ps.Dates()
	return m, nil
}

// FitValues is Fit over raw prices. Prices must be positive.
//
// Steps: log, OLS trend over the sample index, real FFT of the residual,
// then the topK bins by magnitude with bin 0 excluded. Ties in magnitude keep
// the lower bin first; the same order is used for the output.
func FitValues(prices []float64, topK, window int) (domain.SpectralModel, error) {
	const op = "spectral.Fit"
	if window > 0 && len(prices) > window {
		prices = prices[len(prices)-window:]
	}
	n := len(prices)
	if n < minSamples {
		return domain.SpectralModel{}, domain.Insufficient(op, minSamples, n)
	}
	if topK < 0 {
		return domain.SpectralModel{}, domain.Invalid(op, "top_k must be >= 0, got %d", topK)
	}

	idx := make([]float64, n)
	logp := make([]float64, n)
	for i, p := range prices {
		if !(p > 0) || math.IsInf(p, 0) {
			return domain.SpectralModel{}, domain.Invalid(op, "non-positive or non-finite price at index %d", i)
		}
		idx[i] = float64(i)
		logp[i] = math.Log(p)
	}

	intercept, slope := stat.LinearRegression(idx, logp, nil, false)
	trend := domain.LinearTrend{Intercept: intercept, Slope: slope}

	resid := make([]float64, n)
	for i := range logp {
		resid[i] = logp[i] - trend.At(idx[i])
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, resid)
	freqs := make([]float64, len(coeffs))
	for i := range freqs {
		freqs[i] = fft.Freq(i)
	}

	return domain.SpectralModel{
		N:            n,
		Prices:       append([]float64(nil), prices...),
		Trend:        trend,
		Residual:     resid,
		Freqs:        freqs,
		Coefficients: coeffs,
		Components:   selectComponents(coeffs, freqs, n, topK),
	}, nil
}

// selectComponents ranks bins 1.. by magnitude (stable, so the lower bin wins
// ties) and keeps the first topK.
func selectComponents(coeffs []complex128, freqs []float64, n, topK int) []domain.Component {
	if len(coeffs) < 2 || topK == 0 {
		return nil
	}
	bins := make([]int, 0, len(coeffs)-1)
	for i := 1; i < len(coeffs); i++ {
		bins = append(bins, i)
	}
	sort.SliceStable(bins, func(a, b int) bool {
		return cmplx.Abs(coeffs[bins[a]]) > cmplx.Abs(coeffs[bins[b]])
	})
	if len(bins) > topK {
		bins = bins[:topK]
	}

	comps := make([]domain.Component, len(bins))
	for i, b := range bins {
		f := freqs[b]
		comps[i] = domain.Component{
			Index:     b,
			Frequency: f,
			Period:    int(math.Round(1 / math.Max(f, minFreq))),
			Amplitude: 2.0 / float64(n) * cmplx.Abs(coeffs[b]),
			Phase:     cmplx.Phase(coeffs[b]),
		}
	}
	return comps
}

// Cycles evaluates Σ A·cos(2π·f·t + φ) over the components at index t,
// with amplitudes multiplied by ampScale and phases shifted by jitter[i].
func Cycles(comps []domain.Component, t, ampScale float64, jitter []float64) float64 {
	var sum float64
	for i, c := range comps {
		ph := c.Phase
		if i < len(jitter) {
			ph += jitter[i]
		}
		sum += c.Amplitude * ampScale * math.Cos(2*math.Pi*c.Frequency*t+ph)
	}
	return sum
}

// Reconstruct returns the in-sample fit exp(trend + cycles).
func Reconstruct(m domain.SpectralModel) []float64 {
	out := make([]float64, m.N)
	for t := range out {
		ft := float64(t)
		out[t] = math.Exp(m.Trend.At(ft) + Cycles(m.Components, ft, 1, nil))
	}
	return out
}

// LowPass rebuilds the prices keeping only the lowest cutoffPct of the
// frequency bins (at least 2) and inverting the transform.
func LowPass(m domain.SpectralModel, cutoffPct float64) []float64 {
	if m.N < minSamples {
		return append([]float64(nil), m.Prices...)
	}
	keep := max(2, int(float64(len(m.Coefficients))*cutoffPct))
	filtered := make([]complex128, len(m.Coefficients))
	copy(filtered[:min(keep, len(filtered))], m.Coefficients)

	fft := fourier.NewFFT(m.N)
	resid := fft.Sequence(nil, filtered)

	out := make([]float64, m.N)
	for t := range out {
		// Sequence does not normalize.
		out[t] = math.Exp(m.Trend.At(float64(t)) + resid[t]/float64(m.N))
	}
	return out
}
