// Package frozen rebuilds, for every past instant, what the solver would have
// reported using only the prices available at that instant.
package frozen

// driver.go: recálculo point-in-time en paralelo.
//
// Cada t es independiente (solver sobre el prefijo [0..t]), así que las tareas
// se reparten en un errgroup con límite de workers y cada resultado cae en su
// slot por índice: el orden de salida no depende del scheduling.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/mechanics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options configura Build.
type Options struct {
	domain.FrozenParams
	Ghost   mechanics.GhostOptions // Horizon se toma de FrozenParams.GhostHorizon
	Workers int                    // 0 = runtime.NumCPU()
}

// DefaultOptions: α=200, β=1, lag 25, warm-up 100, stride 1, prefijo completo.
func DefaultOptions() Options {
	return Options{
		FrozenParams: domain.FrozenParams{
			Action:    domain.DefaultActionParams(),
			Lag:       25,
			MinPoints: 100,
			Stride:    1,
		},
		Ghost: mechanics.DefaultGhost(),
	}
}

func (o Options) normalized() Options {
	if o.Stride < 1 {
		o.Stride = 1
	}
	if o.MinPoints < 0 {
		o.MinPoints = 0
	}
	if o.Lag < 0 {
		o.Lag = 0
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	o.Ghost.Horizon = o.GhostHorizon
	return o
}

type slot struct {
	point domain.FrozenPoint
	ok    bool
}

// Build computa el FrozenHistory de ps. Los prefijos que el solver rechaza por
// datos insuficientes se omiten (hueco esperado cerca del warm-up); cualquier
// otro error aborta. La cancelación del contexto también aborta.
func Build(ctx context.Context, ps domain.PriceSeries, opts Options) (domain.FrozenHistory, error) {
	opts = opts.normalized()
	prices := ps.Values()
	dates := ps.Dates()
	n := len(prices)

	var steps []int
	for t := opts.MinPoints; t < n; t += opts.Stride {
		steps = append(steps, t)
	}

	start := time.Now()
	slots := make([]slot, len(steps))
	progress := rate.Sometimes{Interval: 2 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, t := range steps {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := pointAt(prices, t, opts)
			if errors.Is(err, domain.ErrInsufficientData) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("frozen.Build: t=%d: %w", t, err)
			}
			p.Date = dates[t]
			slots[i] = slot{point: p, ok: true}
			progress.Do(func() {
				slog.Debug("frozen build progress", "ticker", ps.Ticker(), "t", t, "of", n)
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.FrozenHistory{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.FrozenHistory{}, fmt.Errorf("frozen.Build: %w", err)
	}

	points := make([]domain.FrozenPoint, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			points = append(points, s.point)
		}
	}

	h := domain.FrozenHistory{
		Ticker:     ps.Ticker(),
		Params:     opts.FrozenParams,
		ComputedAt: time.Now().UTC(),
		Points:     points,
	}
	if n > 0 {
		h.SeriesStart = dates[0]
		h.SeriesEnd = dates[n-1]
	}

	slog.Debug("frozen history built",
		"ticker", ps.Ticker(),
		"samples", n,
		"points", len(points),
		"gaps", len(steps)-len(points),
		"workers", opts.Workers,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return h, nil
}

// pointAt corre el solver sobre el prefijo que termina en t (o la ventana
// Lookback que termina en t) y extrae los valores de la última muestra.
func pointAt(prices []float64, t int, opts Options) (domain.FrozenPoint, error) {
	from := 0
	if opts.Lookback > 0 && t+1 > opts.Lookback {
		from = t + 1 - opts.Lookback
	}
	window := prices[from : t+1]

	tr, err := mechanics.Solve(window, opts.Action)
	if err != nil {
		return domain.FrozenPoint{}, err
	}
	last := tr.Len() - 1

	// Cinética en t-Lag; 0 mientras la ventana no alcanza.
	var kin float64
	if last >= opts.Lag {
		kin = tr.Kinetic[last-opts.Lag]
	}

	p := domain.FrozenPoint{
		Kinetic:    kin,
		Potential:  tr.Potential[last],
		RawSum:     tr.Kinetic[last] + tr.Potential[last],
		Path:       tr.Path[last],
		GhostSlope: tr.Slope[last],
	}
	if opts.Ghost.Horizon > 0 {
		gs, err := mechanics.GhostSlope(window, opts.Action, opts.Ghost)
		if err != nil {
			return domain.FrozenPoint{}, err
		}
		p.GhostSlope = gs
	}
	return p, nil
}
