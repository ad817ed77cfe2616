package backtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
	"github.com/alejandrodnm/fairpath/internal/signal"
)

// StableMode limita los lados que opera la estrategia de pendiente EMA.
type StableMode string

const (
	StableLong  StableMode = "LONG"
	StableShort StableMode = "SHORT"
	StableBoth  StableMode = "BOTH"
)

// ParseStableMode acepta LONG, SHORT o BOTH sin distinguir mayúsculas.
func ParseStableMode(s string) (StableMode, error) {
	switch m := StableMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case StableLong, StableShort, StableBoth:
		return m, nil
	}
	return "", fmt.Errorf("backtest.ParseStableMode: unknown mode %q", s)
}

func (m StableMode) longs() bool  { return m == StableLong || m == StableBoth }
func (m StableMode) shorts() bool { return m == StableShort || m == StableBoth }

// StableOptions configura la estrategia "stable".
type StableOptions struct {
	Alpha          float64 // el span de la EMA de precio es max(5, Alpha/10)
	Mode           StableMode
	EntryThreshold float64
	ExitThreshold  float64
}

// DefaultStable: α=200, solo largos, umbrales en 0.
func DefaultStable() StableOptions {
	return StableOptions{Alpha: 200, Mode: StableLong}
}

// stableMinBars es el mínimo de barras para evaluar la estrategia.
const stableMinBars = 10

// slopeSmoothing es el span de la EMA aplicada a la diferencia de la EMA de precio.
const slopeSmoothing = 14

// StableSignal es una señal de entrada.
type StableSignal struct {
	Index     int
	Date      time.Time
	Price     float64
	Slope     float64
	Direction domain.Direction
}

// StableResult es la salida de Stable.
type StableResult struct {
	Slope    []float64
	Signals  []StableSignal
	Trades   []domain.Trade // cerrados más, si existe, el abierto al final
	Snapshot domain.StableSnapshot
}

// Stable evalúa la estrategia de pendiente EMA suavizada.
//
// La pendiente es EMA14(diff(EMA_span(price))). Los cortes son cruces
// estrictos: un largo entra cuando la pendiente pasa de <= entry a > entry y
// sale cuando pasa de >= exit a < exit; los cortos usan los umbrales negados.
func Stable(ps domain.PriceSeries, opts StableOptions) (StableResult, error) {
	const op = "backtest.Stable"
	if ps.Len() < stableMinBars {
		return StableResult{}, domain.Insufficient(op, stableMinBars, ps.Len())
	}
	if opts.Mode == "" {
		opts.Mode = StableLong
	}
	if !opts.Mode.longs() && !opts.Mode.shorts() {
		return StableResult{}, domain.Invalid(op, "unknown mode %q", opts.Mode)
	}

	prices := ps.Values()
	dates := ps.Dates()
	span := int(opts.Alpha / 10)
	if span < 5 {
		span = 5
	}
	slope := signal.EMA(signal.Diff(signal.EMA(prices, span)), slopeSmoothing)

	var (
		res     = StableResult{Slope: slope}
		pos     *position
		entryIx int
	)
	closeAt := func(i int) {
		res.Trades = append(res.Trades, domain.Trade{
			ID:         domain.TradeID(pos.entryDate, pos.dir),
			Direction:  pos.dir,
			EntryDate:  pos.entryDate,
			EntryPrice: pos.entryPrice,
			ExitDate:   dates[i],
			ExitPrice:  prices[i],
			PnLPct:     pos.pnlPct(prices[i]),
		})
		pos = nil
	}
	open := func(i int, dir domain.Direction) {
		pos = &position{dir: dir, entryDate: dates[i], entryPrice: prices[i]}
		entryIx = i
		res.Signals = append(res.Signals, StableSignal{
			Index: i, Date: dates[i], Price: prices[i], Slope: slope[i], Direction: dir,
		})
	}

	for i := 1; i < len(slope); i++ {
		s, prev := slope[i], slope[i-1]
		if opts.Mode.longs() {
			switch {
			case pos == nil && s > opts.EntryThreshold && prev <= opts.EntryThreshold:
				open(i, domain.Long)
			case pos != nil && pos.dir == domain.Long && s < opts.ExitThreshold && prev >= opts.ExitThreshold:
				closeAt(i)
			}
		}
		if opts.Mode.shorts() {
			switch {
			case pos == nil && s < -opts.EntryThreshold && prev >= -opts.EntryThreshold:
				open(i, domain.Short)
			case pos != nil && pos.dir == domain.Short && s > -opts.ExitThreshold && prev <= -opts.ExitThreshold:
				closeAt(i)
			}
		}
	}

	last := len(prices) - 1
	res.Snapshot.CurrentSlope = slope[last]
	if n := len(res.Signals); n > 0 {
		res.Snapshot.LastSignal = res.Signals[n-1].Date
	}
	if pos != nil {
		pnl := pos.pnlPct(prices[last])
		res.Trades = append(res.Trades, domain.Trade{
			ID:         domain.TradeID(pos.entryDate, pos.dir),
			Direction:  pos.dir,
			EntryDate:  pos.entryDate,
			EntryPrice: pos.entryPrice,
			ExitDate:   dates[last],
			ExitPrice:  prices[last],
			Open:       true,
			PnLPct:     pnl,
		})
		res.Snapshot.InPosition = true
		res.Snapshot.Direction = pos.dir
		res.Snapshot.EntryDate = dates[entryIx]
		res.Snapshot.EntryPrice = pos.entryPrice
		res.Snapshot.OpenPnLPct = pnl
	}
	return res, nil
}

// RecentSignals filtra las señales cuya fecha cae en los últimos `days` días
// respecto a asOf (inclusive).
func (r StableResult) RecentSignals(asOf time.Time, days int) []StableSignal {
	var out []StableSignal
	cutoff := asOf.AddDate(0, 0, -days)
	for _, s := range r.Signals {
		if !s.Date.Before(cutoff) && !s.Date.After(asOf) {
			out = append(out, s)
		}
	}
	return out
}
