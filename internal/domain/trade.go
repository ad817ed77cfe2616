package domain

import (
	"time"

	"github.com/google/uuid"
)

// Direction es el lado de una posición.
type Direction int

const (
	Long Direction = iota + 1
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "NONE"
	}
}

// tradeNamespace fija los IDs deterministas de trades (UUIDv5).
var tradeNamespace = uuid.MustParse("6f1c63f4-5d0e-4c55-9a52-2b7d0c0b9e11")

// TradeID deriva un ID estable de la fecha de entrada y la dirección.
// El mismo trade re-simulado con más datos conserva su ID, lo que permite
// compararlo entre ejecuciones.
func TradeID(entry time.Time, dir Direction) uuid.UUID {
	return uuid.NewSHA1(tradeNamespace, []byte(entry.UTC().Format(time.RFC3339)+"|"+dir.String()))
}

// Trade es una operación del backtest. Inmutable una vez cerrada.
type Trade struct {
	ID           uuid.UUID
	Direction    Direction
	EntryDate    time.Time
	EntryPrice   float64
	ExitDate     time.Time // última fecha evaluada si Open
	ExitPrice    float64   // último precio evaluado si Open
	Open         bool      // true = posición abierta, P/L no realizado
	PnLPct       float64   // % realizado o no realizado
	CapitalAfter float64   // capital tras el cierre (sin cambios si Open)
}

// BacktestStats resume un BacktestResult.
type BacktestStats struct {
	InitialCapital float64
	FinalCapital   float64
	TotalReturn    float64 // % sobre capital realizado
	WinRate        float64 // % de trades con PnLPct > 0 (incluye el abierto)
	TotalTrades    int
	AvgTradePct    float64
	MaxDrawdown    float64 // mayor caída pico-valle de la equity, en puntos %
}

// BacktestResult es la salida del backtester. Las curvas tienen una entrada por barra.
type BacktestResult struct {
	Trades        []Trade
	EquityCurve   []float64 // % acumulado sobre el capital inicial, mark-to-market
	TradePnLCurve []float64 // P/L del trade en curso, 0 cuando flat
	Stats         BacktestStats
}

// OpenTrade devuelve el trade abierto al final, si existe.
func (r BacktestResult) OpenTrade() (Trade, bool) {
	if n := len(r.Trades); n > 0 && r.Trades[n-1].Open {
		return r.Trades[n-1], true
	}
	return Trade{}, false
}

// LastTrade devuelve el último trade reportado, si existe.
func (r BacktestResult) LastTrade() (Trade, bool) {
	if n := len(r.Trades); n > 0 {
		return r.Trades[n-1], true
	}
	return Trade{}, false
}
