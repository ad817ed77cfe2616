package signal

import "math"

// minFilterLen is the shortest series FiltFilt will touch; shorter inputs
// come back unfiltered because the odd padding would dominate them.
const minFilterLen = 15

// IIR holds normalized transfer-function coefficients (A[0] == 1).
type IIR struct {
	B []float64
	A []float64
}

// Butterworth2 designs a 2nd-order Butterworth low-pass filter by bilinear
// transform. cutoff is normalized to Nyquist and must lie in (0, 1).
func Butterworth2(cutoff float64) IIR {
	k := math.Tan(math.Pi * cutoff / 2)
	k2 := k * k
	norm := 1 / (1 + math.Sqrt2*k + k2)
	b0 := k2 * norm
	return IIR{
		B: []float64{b0, 2 * b0, b0},
		A: []float64{1, 2 * (k2 - 1) * norm, (1 - math.Sqrt2*k + k2) * norm},
	}
}

// DefaultLowPass is the smoothing stage applied to frozen composite signals.
func DefaultLowPass() IIR { return Butterworth2(0.05) }

// Filter runs the filter forward over x (direct form II transposed) starting
// from state zi. A nil zi means a zero initial state.
func (f IIR) Filter(x, zi []float64) []float64 {
	order := f.order()
	z := make([]float64, order)
	copy(z, zi)
	b := pad(f.B, order+1)
	a := pad(f.A, order+1)

	out := make([]float64, len(x))
	for n, xn := range x {
		yn := b[0]*xn + z[0]
		for i := 0; i < order-1; i++ {
			z[i] = b[i+1]*xn - a[i+1]*yn + z[i+1]
		}
		z[order-1] = b[order]*xn - a[order]*yn
		out[n] = yn
	}
	return out
}

// SteadyState returns the initial state for which a unit step input produces
// a constant output from the first sample.
func (f IIR) SteadyState() []float64 {
	order := f.order()
	b := pad(f.B, order+1)
	a := pad(f.A, order+1)
	var sb, sa float64
	for i := range b {
		sb += b[i]
		sa += a[i]
	}
	ss := sb / sa

	zi := make([]float64, order)
	zi[order-1] = b[order] - a[order]*ss
	for i := order - 2; i >= 0; i-- {
		zi[i] = b[i+1] - a[i+1]*ss + zi[i+1]
	}
	return zi
}

// FiltFilt applies the filter forward and backward so the result has zero
// phase lag. Every output depends on the WHOLE input, past and future, so
// callers must only pass history truncated at the instant being evaluated.
func (f IIR) FiltFilt(x []float64) []float64 {
	padlen := 3 * max(len(f.A), len(f.B))
	if len(x) <= max(minFilterLen, padlen) {
		return append([]float64(nil), x...)
	}

	ext := oddExtend(x, padlen)
	zi := f.SteadyState()

	y := f.Filter(ext, scale(zi, ext[0]))
	reverse(y)
	y = f.Filter(y, scale(zi, y[0]))
	reverse(y)

	return y[padlen : len(y)-padlen]
}

func (f IIR) order() int {
	return max(len(f.A), len(f.B)) - 1
}

// oddExtend reflects x around both endpoints: 2·x[0]-x[k] on the left and
// 2·x[n-1]-x[n-1-k] on the right.
func oddExtend(x []float64, padlen int) []float64 {
	n := len(x)
	ext := make([]float64, 0, n+2*padlen)
	for k := padlen; k >= 1; k-- {
		ext = append(ext, 2*x[0]-x[k])
	}
	ext = append(ext, x...)
	for k := 1; k <= padlen; k++ {
		ext = append(ext, 2*x[n-1]-x[n-1-k])
	}
	return ext
}

func pad(c []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, c)
	return out
}

func scale(v []float64, k float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * k
	}
	return out
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
