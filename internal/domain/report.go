package domain

import (
	"time"

	"github.com/google/uuid"
)

// StrategyOutcome es el backtest de una estrategia sobre la serie analizada.
type StrategyOutcome struct {
	Kind      StrategyKind
	Threshold float64
	Signal    []float64 // alineada con las fechas del informe
	Result    BacktestResult
}

// AnalysisReport es la salida completa del análisis de un ticker.
type AnalysisReport struct {
	RunID  uuid.UUID
	Ticker string
	AsOf   time.Time // última fecha incluida
	Dates  []time.Time
	Prices []float64

	Trajectory ActionTrajectory
	ZKinetic   []float64
	ZSlope     []float64
	ROC        []float64 // % a 20 barras
	ZROC       []float64

	AvgAbsKinetic float64

	Strategies []StrategyOutcome
	Spectral   SpectralModel
	Forecast   Forecast

	FrozenDates []time.Time
	ZFrozenPot  []float64
	ZFrozenSum  []float64
}

// Strategy devuelve el resultado de la estrategia pedida.
func (r AnalysisReport) Strategy(kind StrategyKind) (StrategyOutcome, bool) {
	for _, s := range r.Strategies {
		if s.Kind == kind {
			return s, true
		}
	}
	return StrategyOutcome{}, false
}

// TradeChange describe una alteración retroactiva de un trade.
type TradeChange struct {
	EntryDate   time.Time
	FirstSeen   Trade
	FirstSeenAt time.Time // última fecha del prefijo donde apareció
	Changes     []string
}

// IntegrityReport es el resultado de re-simular una estrategia sobre prefijos.
type IntegrityReport struct {
	Ticker      string
	Strategy    StrategyKind
	Replays     int
	TotalTrades int // trades distintos (por fecha de entrada) observados
	Corrupted   []TradeChange
}

// Clean indica que ningún trade cambió retroactivamente.
func (r IntegrityReport) Clean() bool { return len(r.Corrupted) == 0 }
