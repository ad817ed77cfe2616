package domain

import "time"

// Component es un ciclo dominante extraído del espectro del residuo log-precio.
type Component struct {
	Index     int     // bin de frecuencia en la rfft
	Frequency float64 // ciclos por muestra
	Period    int     // muestras por ciclo, round(1/f)
	Amplitude float64 // (2/N)·|X|
	Phase     float64 // arg(X) en radianes
}

// LinearTrend es la recta log(precio) = Intercept + Slope·t.
type LinearTrend struct {
	Intercept float64
	Slope     float64
}

// At evalúa la tendencia en el índice t.
func (l LinearTrend) At(t float64) float64 { return l.Intercept + l.Slope*t }

// SpectralModel es la descomposición tendencia + ciclos de una ventana de precios.
type SpectralModel struct {
	N            int // muestras analizadas (tras aplicar la ventana)
	Dates        []time.Time
	Prices       []float64
	Trend        LinearTrend
	Residual     []float64
	Freqs        []float64
	Coefficients []complex128
	Components   []Component // ordenados por amplitud descendente, sin DC
}

// Forecast agrupa la proyección base y los escenarios con jitter de fase.
type Forecast struct {
	Horizon     int
	Index       []int       // 0..N+horizon-1, relativo al inicio de la ventana
	FutureDates []time.Time // fechas de los horizon pasos futuros
	Base        []float64   // escenario sin jitter
	Scenarios   [][]float64 // Scenarios[0] == Base
}

// Future devuelve solo la parte futura de la proyección base.
func (f Forecast) Future() []float64 {
	h := f.Horizon
	if h <= 0 || h > len(f.Base) {
		return nil
	}
	return append([]float64(nil), f.Base[len(f.Base)-h:]...)
}
