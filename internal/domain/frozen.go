package domain

import "time"

// FrozenParams identifica cómo se construyó un FrozenHistory.
// Dos historias solo son intercambiables si sus params coinciden.
type FrozenParams struct {
	Action       ActionParams
	Lag          int // desfase del valor cinético registrado (t - Lag)
	MinPoints    int // warm-up antes del primer punto
	Stride       int // cada cuántas muestras se recalcula
	Lookback     int // 0 = prefijo completo; > 0 = ventana fija antes de cada t
	GhostHorizon int // 0 = pendiente final sin extensión
}

// FrozenPoint es lo que el solver habría producido usando solo datos hasta Date.
type FrozenPoint struct {
	Date       time.Time
	Kinetic    float64 // densidad cinética en t - Lag
	Potential  float64 // densidad potencial en t
	RawSum     float64 // kinetic[t] + potential[t]
	Path       float64 // x*[t]
	GhostSlope float64 // pendiente de x* en t con extensión sintética (sin ella si GhostHorizon = 0)
}

// FrozenHistory es la historia point-in-time en bruto (nunca normalizada).
type FrozenHistory struct {
	Ticker      string
	Params      FrozenParams
	SeriesStart time.Time // primer timestamp de la serie usada
	SeriesEnd   time.Time // último timestamp de la serie usada
	ComputedAt  time.Time
	Points      []FrozenPoint
}

// Len devuelve el número de puntos registrados.
func (h FrozenHistory) Len() int { return len(h.Points) }

// Dates devuelve las fechas de cada punto.
func (h FrozenHistory) Dates() []time.Time {
	out := make([]time.Time, len(h.Points))
	for i, p := range h.Points {
		out[i] = p.Date
	}
	return out
}

// Column extrae una columna numérica con el selector dado.
func (h FrozenHistory) Column(sel func(FrozenPoint) float64) []float64 {
	out := make([]float64, len(h.Points))
	for i, p := range h.Points {
		out[i] = sel(p)
	}
	return out
}

// Covers indica si esta historia sirve para una serie que empieza en start
// y se consulta hasta cutoff: cada punto solo depende de su prefijo, así que
// una historia más larga con el mismo origen sigue siendo válida.
func (h FrozenHistory) Covers(start, cutoff time.Time) bool {
	return h.SeriesStart.Equal(start) && !h.SeriesEnd.Before(cutoff)
}
