package frozen_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/frozen"
	"github.com/alejandrodnm/fairpath/internal/mechanics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)

func series(t *testing.T, n int, tweak func(i int, p float64) float64) domain.PriceSeries {
	t.Helper()
	pts := make([]domain.PricePoint, n)
	for i := range pts {
		fi := float64(i)
		p := 50 * math.Exp(0.0008*fi+0.05*math.Sin(2*math.Pi*fi/35)+0.01*math.Sin(fi*1.7))
		if tweak != nil {
			p = tweak(i, p)
		}
		pts[i] = domain.PricePoint{Time: day0.AddDate(0, 0, i), Value: p}
	}
	ps, err := domain.NewPriceSeries("TST", pts)
	require.NoError(t, err)
	return ps
}

func smallOpts() frozen.Options {
	o := frozen.DefaultOptions()
	o.MinPoints = 60
	o.Workers = 4
	return o
}

func TestBuild_PointsMatchPrefixSolves(t *testing.T) {
	ps := series(t, 160, nil)
	opts := smallOpts()
	h, err := frozen.Build(context.Background(), ps, opts)
	require.NoError(t, err)
	require.Equal(t, 100, h.Len())
	assert.Equal(t, ps.First().Time, h.SeriesStart)
	assert.Equal(t, ps.Last().Time, h.SeriesEnd)
	assert.Equal(t, opts.FrozenParams, h.Params)

	prices := ps.Values()
	for _, k := range []int{0, 37, 99} {
		tIdx := opts.MinPoints + k
		tr, err := mechanics.Solve(prices[:tIdx+1], opts.Action)
		require.NoError(t, err)
		p := h.Points[k]
		assert.Equal(t, ps.At(tIdx).Time, p.Date)
		assert.Equal(t, tr.Potential[tIdx], p.Potential)
		assert.Equal(t, tr.Kinetic[tIdx-opts.Lag], p.Kinetic)
		assert.Equal(t, tr.Kinetic[tIdx]+tr.Potential[tIdx], p.RawSum)
		assert.Equal(t, tr.Path[tIdx], p.Path)
		assert.Equal(t, tr.Slope[tIdx], p.GhostSlope)
	}
}

func TestBuild_OrderIndependentOfWorkers(t *testing.T) {
	ps := series(t, 150, nil)
	one := smallOpts()
	one.Workers = 1
	many := smallOpts()
	many.Workers = 8

	a, err := frozen.Build(context.Background(), ps, one)
	require.NoError(t, err)
	b, err := frozen.Build(context.Background(), ps, many)
	require.NoError(t, err)
	assert.Equal(t, a.Points, b.Points)
}

func TestBuild_WarmupGapsAreSkipped(t *testing.T) {
	ps := series(t, 30, nil)
	opts := smallOpts()
	opts.MinPoints = 0
	h, err := frozen.Build(context.Background(), ps, opts)
	require.NoError(t, err)
	// t=0 y t=1 no tienen suficientes muestras para el solver.
	require.Equal(t, 28, h.Len())
	assert.Equal(t, ps.At(2).Time, h.Points[0].Date)
	// t=2 < Lag: todavía no hay cinética desfasada.
	assert.Zero(t, h.Points[0].Kinetic)
}

func TestBuild_KineticIsLaggedByExactlyLag(t *testing.T) {
	ps := series(t, 140, nil)
	prices := ps.Values()
	for _, lag := range []int{0, 1, 25} {
		opts := smallOpts()
		opts.Lag = lag
		h, err := frozen.Build(context.Background(), ps, opts)
		require.NoError(t, err)

		last := h.Points[h.Len()-1]
		tr, err := mechanics.Solve(prices, opts.Action)
		require.NoError(t, err)
		tIdx := len(prices) - 1
		assert.Equal(t, tr.Kinetic[tIdx-lag], last.Kinetic, "lag %d", lag)
		if lag > 0 {
			assert.NotEqual(t, tr.Kinetic[tIdx-lag+1], last.Kinetic, "lag %d", lag)
		}
	}
}

func TestBuild_Stride(t *testing.T) {
	ps := series(t, 100, nil)
	opts := smallOpts()
	opts.Stride = 10
	h, err := frozen.Build(context.Background(), ps, opts)
	require.NoError(t, err)
	require.Equal(t, 4, h.Len())
	assert.Equal(t, ps.At(90).Time, h.Points[3].Date)
}

func TestBuild_Lookback(t *testing.T) {
	ps := series(t, 120, nil)
	opts := smallOpts()
	opts.Lookback = 50
	h, err := frozen.Build(context.Background(), ps, opts)
	require.NoError(t, err)

	prices := ps.Values()
	tr, err := mechanics.Solve(prices[70:120], opts.Action)
	require.NoError(t, err)
	last := h.Points[h.Len()-1]
	assert.Equal(t, tr.Path[49], last.Path)
}

func TestBuild_GhostSlope(t *testing.T) {
	ps := series(t, 90, nil)
	opts := smallOpts()
	opts.GhostHorizon = 10
	h, err := frozen.Build(context.Background(), ps, opts)
	require.NoError(t, err)

	g := mechanics.DefaultGhost()
	want, err := mechanics.GhostSlope(ps.Values()[:90], opts.Action, g)
	require.NoError(t, err)
	assert.Equal(t, want, h.Points[h.Len()-1].GhostSlope)
}

func TestBuild_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := frozen.Build(ctx, series(t, 120, nil), smallOpts())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_InvalidParamsAbort(t *testing.T) {
	opts := smallOpts()
	opts.Action.Alpha = -1
	_, err := frozen.Build(context.Background(), series(t, 80, nil), opts)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// --- Slice / Renormalize ---

func TestSliceAndRenormalize_IdempotentTruncation(t *testing.T) {
	ps := series(t, 220, nil)
	h, err := frozen.Build(context.Background(), ps, smallOpts())
	require.NoError(t, err)

	d1 := ps.At(170).Time
	d2 := ps.At(200).Time
	opts := frozen.DefaultNormalize()

	direct := frozen.SliceAndRenormalize(h, d1, opts)
	viaD2 := frozen.SliceAndRenormalize(frozen.Slice(h, d2), d1, opts)
	assert.Equal(t, direct, viaD2)
	assert.Equal(t, d1, direct.Dates[direct.Len()-1])

	// Y coincide con construir la historia solo con los precios hasta d1.
	hp, err := frozen.Build(context.Background(), ps.Until(d1), smallOpts())
	require.NoError(t, err)
	assert.Equal(t, direct, frozen.Renormalize(hp, opts))
}

func TestSliceAndRenormalize_LateOutlierDoesNotLeak(t *testing.T) {
	spike := func(i int, p float64) float64 {
		if i == 205 {
			return p * 1.8
		}
		return p
	}
	ps := series(t, 220, spike)
	h, err := frozen.Build(context.Background(), ps, smallOpts())
	require.NoError(t, err)
	opts := frozen.DefaultNormalize()

	cutIdx := 190
	d1 := ps.At(cutIdx).Time
	k := cutIdx - smallOpts().MinPoints

	naive := frozen.Renormalize(h, opts) // normalizar todo y luego cortar
	frozenView := frozen.SliceAndRenormalize(h, d1, opts)

	assert.NotEqual(t, naive.ZSum[k], frozenView.ZSum[k], "zero-phase filter leaks the future")

	clean, err := frozen.Build(context.Background(), series(t, 220, nil), smallOpts())
	require.NoError(t, err)
	assert.Equal(t, frozen.SliceAndRenormalize(clean, d1, opts), frozenView)
}

func TestSlice_KeepsRawColumnsAndTrimsEnd(t *testing.T) {
	ps := series(t, 120, nil)
	h, err := frozen.Build(context.Background(), ps, smallOpts())
	require.NoError(t, err)

	cut := ps.At(100).Time
	s := frozen.Slice(h, cut)
	assert.Equal(t, 41, s.Len())
	assert.Equal(t, cut, s.SeriesEnd)
	assert.Equal(t, h.Points[:41], s.Points)

	s.Points[0].Potential = -1
	assert.NotEqual(t, -1.0, h.Points[0].Potential)

	assert.Equal(t, h.Points, frozen.Slice(h, time.Time{}).Points)
}

func TestNormalized_Align(t *testing.T) {
	ps := series(t, 90, nil)
	h, err := frozen.Build(context.Background(), ps, smallOpts())
	require.NoError(t, err)
	n := frozen.Renormalize(h, frozen.DefaultNormalize())

	aligned := n.Align(ps.Dates(), n.ZSum, -999)
	require.Len(t, aligned, 90)
	for i := 0; i < 60; i++ {
		assert.Equal(t, -999.0, aligned[i])
	}
	assert.Equal(t, n.ZSum[0], aligned[60])
}
