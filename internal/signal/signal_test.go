package signal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) + 0.3*math.Sin(float64(i)/3)
	}
	return out
}

// --- EMA ---

func TestEMA_SeedsWithFirstSample(t *testing.T) {
	got := EMA([]float64{10, 20, 30}, 3) // a = 0.5
	assert.Equal(t, []float64{10, 15, 22.5}, got)
}

func TestEMA_Empty(t *testing.T) {
	assert.Empty(t, EMA(nil, 20))
}

func TestEMAAdjusted_FirstValuesAreWeightedMeans(t *testing.T) {
	got := EMAAdjusted([]float64{10, 20}, 3) // w = 0.5
	assert.InDelta(t, 10, got[0], 1e-12)
	assert.InDelta(t, (20+0.5*10)/1.5, got[1], 1e-12)
}

func TestDiff_FirstIsZero(t *testing.T) {
	assert.Equal(t, []float64{0, 1, -3}, Diff([]float64{5, 6, 3}))
}

// --- RollingZScore ---

func TestRollingZScore_BelowMinPeriodsIsZero(t *testing.T) {
	z := RollingZScore(ramp(30), ZScoreOptions{Window: 252, MinPeriods: 20, Epsilon: 1e-6})
	for i := 0; i < 19; i++ {
		assert.Zero(t, z[i], "index %d", i)
	}
	assert.NotZero(t, z[19])
}

func TestRollingZScore_IsCausal(t *testing.T) {
	x := ramp(120)
	full := RollingZScore(x, DefaultZScore())

	// Cambiar el futuro no cambia el pasado.
	mut := append([]float64(nil), x...)
	for i := 80; i < len(mut); i++ {
		mut[i] *= 7
	}
	changed := RollingZScore(mut, DefaultZScore())
	assert.Equal(t, full[:80], changed[:80])

	// Truncar tampoco.
	assert.Equal(t, full[:80], RollingZScore(x[:80], DefaultZScore()))
}

func TestRollingZScore_MatchesManualWindow(t *testing.T) {
	x := ramp(40)
	opts := ZScoreOptions{Window: 10, MinPeriods: 5}
	z := RollingZScore(x, opts)

	w := x[30:40]
	var mean float64
	for _, v := range w {
		mean += v
	}
	mean /= float64(len(w))
	var ss float64
	for _, v := range w {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(len(w)-1))
	assert.InDelta(t, (x[39]-mean)/std, z[39], 1e-9)
}

func TestRollingZScore_ConstantSeriesIsFinite(t *testing.T) {
	x := make([]float64, 50)
	for i := range x {
		x[i] = 3
	}
	for _, v := range RollingZScore(x, DefaultZScore()) {
		assert.Zero(t, v)
	}
	// Sin epsilon: 0/0 → NaN → 0.
	for _, v := range RollingZScore(x, ZScoreOptions{Window: 20, MinPeriods: 20}) {
		assert.Zero(t, v)
	}
}

func TestRollingZScore_SkipsNonFinite(t *testing.T) {
	x := ramp(40)
	x[25] = math.NaN()
	z := RollingZScore(x, ZScoreOptions{Window: 20, MinPeriods: 5, Epsilon: 1e-6})
	assert.Zero(t, z[25])
	for _, v := range z {
		assert.False(t, math.IsNaN(v))
	}
}

// --- Filter ---

func TestButterworth2_UnityDCGain(t *testing.T) {
	f := Butterworth2(0.05)
	var sb, sa float64
	for i := range f.B {
		sb += f.B[i]
		sa += f.A[i]
	}
	assert.InDelta(t, 1, sb/sa, 1e-12)
	assert.Equal(t, 1.0, f.A[0])
}

func TestFiltFilt_ConstantStaysConstant(t *testing.T) {
	x := make([]float64, 100)
	for i := range x {
		x[i] = 2.5
	}
	y := DefaultLowPass().FiltFilt(x)
	require.Len(t, y, len(x))
	for i, v := range y {
		assert.InDelta(t, 2.5, v, 1e-9, "index %d", i)
	}
}

func TestFiltFilt_ShortSeriesUnfiltered(t *testing.T) {
	x := ramp(15)
	y := DefaultLowPass().FiltFilt(x)
	assert.Equal(t, x, y)
	y[0] = 99
	assert.NotEqual(t, 99.0, x[0], "must return a copy")
}

func TestFiltFilt_SmoothsNoise(t *testing.T) {
	n := 200
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2*math.Pi*float64(i)/100) + 0.5*math.Pow(-1, float64(i))
	}
	y := DefaultLowPass().FiltFilt(x)
	// La componente de Nyquist desaparece casi por completo.
	for i := 30; i < n-30; i++ {
		assert.InDelta(t, math.Sin(2*math.Pi*float64(i)/100), y[i], 0.1, "index %d", i)
	}
}

func TestSteadyState_StepResponseIsFlat(t *testing.T) {
	f := DefaultLowPass()
	step := []float64{1, 1, 1, 1, 1}
	for _, v := range f.Filter(step, f.SteadyState()) {
		assert.InDelta(t, 1, v, 1e-12)
	}
}

// --- AlignByDate ---

func TestAlignByDate_FillsMissing(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	cal := []time.Time{d(1), d(2), d(3), d(4)}
	got := AlignByDate(cal, []time.Time{d(2), d(4)}, []float64{0.5, -1}, -999)
	assert.Equal(t, []float64{-999, 0.5, -999, -1}, got)
}
