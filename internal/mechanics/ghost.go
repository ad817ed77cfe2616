package mechanics

import (
	"fmt"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/spectral"
)

// GhostOptions configures the synthetic continuation used by GhostSlope.
type GhostOptions struct {
	Horizon int // synthetic samples appended after the last observation
	TopK    int
	Window  int
}

// DefaultGhost appends 10 synthetic samples from a 5-cycle, 252-sample fit.
func DefaultGhost() GhostOptions {
	return GhostOptions{Horizon: 10, TopK: spectral.DefaultTopK, Window: spectral.DefaultWindow}
}

// GhostSlope returns the slope of x* at the last observed sample after
// splicing a spectral continuation onto prices. The solver's endpoint is pinned
// by its boundary condition; the ghost future lets the last real sample behave
// like an interior one. Only prices are used, so the value is point-in-time.
func GhostSlope(prices []float64, p domain.ActionParams, g GhostOptions) (float64, error) {
	last := len(prices) - 1
	if g.Horizon <= 0 {
		tr, err := Solve(prices, p)
		if err != nil {
			return 0, err
		}
		return tr.Slope[last], nil
	}

	model, err := spectral.FitValues(prices, g.TopK, g.Window)
	if err != nil {
		return 0, fmt.Errorf("mechanics.GhostSlope: fit: %w", err)
	}
	ext := make([]float64, 0, len(prices)+g.Horizon)
	ext = append(ext, prices...)
	ext = append(ext, spectral.Continue(model, g.Horizon)...)

	tr, err := Solve(ext, p)
	if err != nil {
		return 0, err
	}
	return tr.Slope[last], nil
}
