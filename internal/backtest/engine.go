// Package backtest turns an aligned (price, signal, date) series into a
// sequence of non-overlapping trades and a mark-to-market equity curve.
package backtest

import (
	"math"
	"time"

	"github.com/alejandrodnm/fairpath/internal/domain"
)

// DefaultSentinel marks bars where a signal does not exist yet.
const DefaultSentinel = -999.0

// EntryMode decide de qué lado del umbral se abre posición.
type EntryMode int

const (
	// EntryAbove abre cuando signal > threshold y cierra cuando signal < threshold.
	EntryAbove EntryMode = iota
	// EntryBelow abre cuando signal < threshold y cierra cuando signal > threshold.
	EntryBelow
)

// DirectionMode decide LONG/SHORT al abrir.
type DirectionMode int

const (
	// DirectionSlope: LONG si Slope[t] >= 0.
	DirectionSlope DirectionMode = iota
	// DirectionZRate: LONG si signal[t] - signal[t-1] >= 0.
	DirectionZRate
	// DirectionTrend: LONG si price[t] >= TrendCurve[t].
	DirectionTrend
)

func (m DirectionMode) String() string {
	switch m {
	case DirectionSlope:
		return "slope"
	case DirectionZRate:
		return "z-rate"
	case DirectionTrend:
		return "trend"
	default:
		return "unknown"
	}
}

// Rules es el conjunto de reglas de un backtest.
type Rules struct {
	Threshold      float64
	Entry          EntryMode
	Direction      DirectionMode
	Slope          []float64 // requerido con DirectionSlope
	TrendCurve     []float64 // requerido con DirectionTrend
	Start          time.Time // zero = sin límite
	End            time.Time // zero = sin límite
	InitialCapital float64   // 0 = 1000
	Sentinel       float64   // 0 = DefaultSentinel; signal <= Sentinel es "sin señal"
}

// DefaultRules: umbral 0, cruce hacia arriba, dirección por slope, capital 1000.
func DefaultRules() Rules {
	return Rules{InitialCapital: 1000, Sentinel: DefaultSentinel}
}

// position es el estado IN_POSITION de la máquina.
type position struct {
	dir        domain.Direction
	entryDate  time.Time
	entryPrice float64
}

func (p position) pnlPct(price float64) float64 {
	if p.dir == domain.Long {
		return (price - p.entryPrice) / p.entryPrice * 100
	}
	return (p.entryPrice - price) / p.entryPrice * 100
}

// Run ejecuta la máquina FLAT / IN_POSITION barra a barra.
//
// Cada barra emite el P/L del trade en curso (0 si flat) y la equity
// mark-to-market; en barras flat la equity es exactamente
// (capital - inicial) / inicial × 100. Las barras antes de Start emiten 0 y no
// abren; las barras después de End repiten el último valor y no operan. Una
// posición abierta al final se reporta con Open=true a precio de la última
// barra evaluada, sin tocar el capital.
func Run(prices, sig []float64, dates []time.Time, rules Rules) (domain.BacktestResult, error) {
	if err := validate(prices, sig, dates, rules); err != nil {
		return domain.BacktestResult{}, err
	}
	if rules.InitialCapital <= 0 {
		rules.InitialCapital = 1000
	}
	if rules.Sentinel == 0 {
		rules.Sentinel = DefaultSentinel
	}

	initial := rules.InitialCapital
	capital := initial
	n := len(prices)

	var (
		pos       *position
		trades    []domain.Trade
		equity    = make([]float64, n)
		tradePnL  = make([]float64, n)
		lastEval  = -1 // última barra dentro de la ventana
		lastEq    float64
		lastTrade float64
	)

	flatEquity := func() float64 { return (capital - initial) / initial * 100 }
	markEquity := func(price float64) float64 {
		if pos == nil {
			return flatEquity()
		}
		open := capital * (1 + pos.pnlPct(price)/100)
		return (open - initial) / initial * 100
	}

	for i := 0; i < n; i++ {
		date := dates[i]
		if !rules.Start.IsZero() && date.Before(rules.Start) {
			continue // equity y trade P/L quedan en 0
		}
		if !rules.End.IsZero() && date.After(rules.End) {
			equity[i] = lastEq
			tradePnL[i] = lastTrade
			continue
		}
		lastEval = i
		price := prices[i]
		s := sig[i]

		if !rules.hasSignal(s) {
			// Sin señal: el estado se arrastra sin cambios.
			if pos != nil {
				tradePnL[i] = pos.pnlPct(price)
			}
			equity[i] = markEquity(price)
			lastEq, lastTrade = equity[i], tradePnL[i]
			continue
		}

		switch {
		case pos == nil && rules.entryTriggered(s):
			pos = &position{
				dir:        rules.direction(i, prices, sig),
				entryDate:  date,
				entryPrice: price,
			}
			tradePnL[i] = 0
			equity[i] = flatEquity()

		case pos != nil && rules.exitTriggered(s):
			pnl := pos.pnlPct(price)
			capital *= 1 + pnl/100
			trades = append(trades, domain.Trade{
				ID:           domain.TradeID(pos.entryDate, pos.dir),
				Direction:    pos.dir,
				EntryDate:    pos.entryDate,
				EntryPrice:   pos.entryPrice,
				ExitDate:     date,
				ExitPrice:    price,
				PnLPct:       pnl,
				CapitalAfter: capital,
			})
			pos = nil
			tradePnL[i] = 0
			equity[i] = flatEquity()

		case pos != nil:
			tradePnL[i] = pos.pnlPct(price)
			equity[i] = markEquity(price)

		default:
			equity[i] = flatEquity()
		}
		lastEq, lastTrade = equity[i], tradePnL[i]
	}

	if pos != nil && lastEval >= 0 {
		price := prices[lastEval]
		trades = append(trades, domain.Trade{
			ID:           domain.TradeID(pos.entryDate, pos.dir),
			Direction:    pos.dir,
			EntryDate:    pos.entryDate,
			EntryPrice:   pos.entryPrice,
			ExitDate:     dates[lastEval],
			ExitPrice:    price,
			Open:         true,
			PnLPct:       pos.pnlPct(price),
			CapitalAfter: capital,
		})
	}

	return domain.BacktestResult{
		Trades:        trades,
		EquityCurve:   equity,
		TradePnLCurve: tradePnL,
		Stats:         summarize(trades, equity, initial, capital),
	}, nil
}

func (r Rules) hasSignal(s float64) bool {
	return !math.IsNaN(s) && !math.IsInf(s, 0) && s > r.Sentinel
}

func (r Rules) entryTriggered(s float64) bool {
	if r.Entry == EntryBelow {
		return s < r.Threshold
	}
	return s > r.Threshold
}

func (r Rules) exitTriggered(s float64) bool {
	if r.Entry == EntryBelow {
		return s > r.Threshold
	}
	return s < r.Threshold
}

func (r Rules) direction(i int, prices, sig []float64) domain.Direction {
	long := true
	switch r.Direction {
	case DirectionSlope:
		long = r.Slope[i] >= 0
	case DirectionZRate:
		prev := 0.0
		if i > 0 && r.hasSignal(sig[i-1]) {
			prev = sig[i-1]
		}
		long = sig[i]-prev >= 0
	case DirectionTrend:
		long = prices[i] >= r.TrendCurve[i]
	}
	if long {
		return domain.Long
	}
	return domain.Short
}

func validate(prices, sig []float64, dates []time.Time, r Rules) error {
	const op = "backtest.Run"
	n := len(prices)
	if len(sig) != n || len(dates) != n {
		return domain.Invalid(op, "length mismatch: prices=%d signal=%d dates=%d", n, len(sig), len(dates))
	}
	switch r.Direction {
	case DirectionSlope:
		if len(r.Slope) != n {
			return domain.Invalid(op, "slope mode needs %d slope values, got %d", n, len(r.Slope))
		}
	case DirectionTrend:
		if len(r.TrendCurve) != n {
			return domain.Invalid(op, "trend mode needs %d trend values, got %d", n, len(r.TrendCurve))
		}
	case DirectionZRate:
	default:
		return domain.Invalid(op, "unknown direction mode %d", r.Direction)
	}
	for i := range prices {
		if !(prices[i] > 0) || math.IsInf(prices[i], 0) {
			return domain.Invalid(op, "non-positive or non-finite price at index %d", i)
		}
		if i > 0 && !dates[i].After(dates[i-1]) {
			return domain.Invalid(op, "dates not strictly increasing at index %d", i)
		}
	}
	return nil
}

func summarize(trades []domain.Trade, equity []float64, initial, capital float64) domain.BacktestStats {
	st := domain.BacktestStats{
		InitialCapital: initial,
		FinalCapital:   capital,
		TotalTrades:    len(trades),
		MaxDrawdown:    maxDrawdown(equity),
	}
	if len(trades) == 0 {
		return st
	}
	wins := 0
	var sum float64
	for _, t := range trades {
		if t.PnLPct > 0 {
			wins++
		}
		sum += t.PnLPct
	}
	st.WinRate = float64(wins) / float64(len(trades)) * 100
	st.TotalReturn = (capital - initial) / initial * 100
	st.AvgTradePct = sum / float64(len(trades))
	return st
}

// maxDrawdown mide la mayor caída de la riqueza relativa (1 + eq/100) desde
// su máximo previo, en puntos porcentuales.
func maxDrawdown(equity []float64) float64 {
	peak := 1.0
	var dd float64
	for _, e := range equity {
		w := 1 + e/100
		if w > peak {
			peak = w
		}
		if d := (peak - w) / peak * 100; d > dd {
			dd = d
		}
	}
	return dd
}
