package domain

// ActionParams son las constantes físicas del modelo de mínima acción.
type ActionParams struct {
	Alpha   float64 // inercia: penaliza cambios de la trayectoria
	Beta    float64 // rigidez: fidelidad al campo fundamental F
	EMASpan int     // span de la EMA que define F
}

// DefaultActionParams devuelve α=200, β=1, span=20.
func DefaultActionParams() ActionParams {
	return ActionParams{Alpha: 200, Beta: 1, EMASpan: 20}
}

// ActionTrajectory es el resultado completo del solver para una serie.
// Todas las columnas tienen la misma longitud que la serie de entrada.
type ActionTrajectory struct {
	Params ActionParams

	Fundamental []float64 // F: EMA del precio
	Path        []float64 // x*: trayectoria de mínima acción
	Slope       []float64 // x*[t] - x*[t-1], Slope[0] = 0
	Kinetic     []float64 // ½α·slope²
	Potential   []float64 // ½β·(x* - F)²
	Cumulative  []float64 // suma acumulada de kinetic + potential
	ZResidual   []float64 // z-score suavizado de (precio - F)
}

// Len devuelve la longitud de la trayectoria.
func (a ActionTrajectory) Len() int { return len(a.Path) }

// ActionDensity devuelve kinetic + potential por muestra.
func (a ActionTrajectory) ActionDensity() []float64 {
	out := make([]float64, len(a.Kinetic))
	for i := range out {
		out[i] = a.Kinetic[i] + a.Potential[i]
	}
	return out
}
