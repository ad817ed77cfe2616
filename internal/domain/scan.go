package domain

import "time"

// StrategyKind identifica las estrategias evaluadas sobre una serie.
type StrategyKind string

const (
	StrategyLive      StrategyKind = "LIVE"      // z cinético en vivo, dirección por z-slope
	StrategyFrozen    StrategyKind = "FROZEN"    // z del potencial point-in-time, dirección por z-ROC
	StrategySum       StrategyKind = "SUM"       // z filtrado de kin+pot point-in-time, umbral -0.3
	StrategyMinAction StrategyKind = "MINACTION" // z del ghost slope, dirección por precio vs x*
)

// ParseStrategyKind convierte un string (case sensitive) en StrategyKind.
func ParseStrategyKind(s string) (StrategyKind, bool) {
	switch k := StrategyKind(s); k {
	case StrategyLive, StrategyFrozen, StrategySum, StrategyMinAction:
		return k, true
	}
	return "", false
}

// ScanResult es el resumen de radar de un ticker.
type ScanResult struct {
	Ticker        string
	AsOf          time.Time
	Price         float64
	ChangePct     float64 // variación vs la barra anterior
	ZKinetic      float64
	ZPotential    float64
	ZSlope        float64
	AvgAbsKinetic float64 // media de |z cinético|: energía típica del activo

	Frozen StrategySnapshot
	Sum    StrategySnapshot
	Stable StableSnapshot
}

// StrategySnapshot es el estado final de una estrategia en el scan.
type StrategySnapshot struct {
	Trades      int
	TotalReturn float64
	InPosition  bool
	Direction   Direction
	EntryDate   time.Time
	OpenPnLPct  float64
}

// StableSnapshot resume la estrategia de pendiente EMA.
type StableSnapshot struct {
	InPosition   bool
	Direction    Direction
	EntryDate    time.Time
	EntryPrice   float64
	OpenPnLPct   float64
	CurrentSlope float64
	LastSignal   time.Time // última señal de entrada, zero si nunca
}
