package domain

import (
	"math"
	"sort"
	"time"
)

// PricePoint es una observación (timestamp, precio de cierre).
type PricePoint struct {
	Time  time.Time
	Value float64
}

// PriceSeries es una serie de precios validada e inmutable.
// Solo se construye con NewPriceSeries; todos los accesores devuelven copias,
// así que ningún corte comparte estado mutable con la serie original.
type PriceSeries struct {
	ticker string
	points []PricePoint
}

// NewPriceSeries valida y copia los puntos dados.
// Rechaza timestamps no estrictamente crecientes y valores no positivos, NaN o Inf.
func NewPriceSeries(ticker string, points []PricePoint) (PriceSeries, error) {
	const op = "domain.NewPriceSeries"
	cp := make([]PricePoint, len(points))
	for i, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return PriceSeries{}, Invalid(op, "non-finite price at index %d", i)
		}
		if p.Value <= 0 {
			return PriceSeries{}, Invalid(op, "non-positive price %.6g at index %d", p.Value, i)
		}
		if i > 0 && !p.Time.After(points[i-1].Time) {
			return PriceSeries{}, Invalid(op, "timestamps not strictly increasing at index %d (%s)",
				i, p.Time.Format(time.DateOnly))
		}
		cp[i] = p
	}
	return PriceSeries{ticker: ticker, points: cp}, nil
}

// Ticker devuelve el símbolo asociado a la serie.
func (s PriceSeries) Ticker() string { return s.ticker }

// Len devuelve el número de observaciones.
func (s PriceSeries) Len() int { return len(s.points) }

// At devuelve la observación i-ésima.
func (s PriceSeries) At(i int) PricePoint { return s.points[i] }

// First devuelve la primera observación. Panics si la serie está vacía.
func (s PriceSeries) First() PricePoint { return s.points[0] }

// Last devuelve la última observación. Panics si la serie está vacía.
func (s PriceSeries) Last() PricePoint { return s.points[len(s.points)-1] }

// Values devuelve una copia de los precios.
func (s PriceSeries) Values() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}

// Dates devuelve una copia de los timestamps.
func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Time
	}
	return out
}

// Points devuelve una copia de las observaciones.
func (s PriceSeries) Points() []PricePoint {
	return append([]PricePoint(nil), s.points...)
}

// Prefix devuelve las primeras n observaciones (n se acota a [0, Len]).
func (s PriceSeries) Prefix(n int) PriceSeries {
	n = clampInt(n, 0, len(s.points))
	return s.sub(0, n)
}

// Tail devuelve las últimas n observaciones (n se acota a [0, Len]).
func (s PriceSeries) Tail(n int) PriceSeries {
	n = clampInt(n, 0, len(s.points))
	return s.sub(len(s.points)-n, len(s.points))
}

// Until devuelve las observaciones con Time <= cutoff.
func (s PriceSeries) Until(cutoff time.Time) PriceSeries {
	end := sort.Search(len(s.points), func(i int) bool { return s.points[i].Time.After(cutoff) })
	return s.sub(0, end)
}

// Between devuelve las observaciones en [from, to]. Un extremo zero se ignora.
func (s PriceSeries) Between(from, to time.Time) PriceSeries {
	start := 0
	if !from.IsZero() {
		start = sort.Search(len(s.points), func(i int) bool { return !s.points[i].Time.Before(from) })
	}
	end := len(s.points)
	if !to.IsZero() {
		end = sort.Search(len(s.points), func(i int) bool { return s.points[i].Time.After(to) })
	}
	if end < start {
		end = start
	}
	return s.sub(start, end)
}

// Index devuelve la posición del último punto con Time <= t, o -1 si no hay ninguno.
func (s PriceSeries) Index(t time.Time) int {
	return sort.Search(len(s.points), func(i int) bool { return s.points[i].Time.After(t) }) - 1
}

// FutureDates genera n timestamps posteriores al último punto.
// Infiere el paso como la mediana de las diferencias; si es diario,
// salta fines de semana (calendario de días hábiles).
func (s PriceSeries) FutureDates(n int) []time.Time {
	if n <= 0 || len(s.points) == 0 {
		return nil
	}
	step := s.medianStep()
	businessDays := step >= 20*time.Hour && step <= 28*time.Hour

	out := make([]time.Time, 0, n)
	cur := s.Last().Time
	for len(out) < n {
		if businessDays {
			cur = cur.AddDate(0, 0, 1)
			if wd := cur.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
		} else {
			cur = cur.Add(step)
		}
		out = append(out, cur)
	}
	return out
}

func (s PriceSeries) medianStep() time.Duration {
	if len(s.points) < 2 {
		return 24 * time.Hour
	}
	diffs := make([]time.Duration, len(s.points)-1)
	for i := 1; i < len(s.points); i++ {
		diffs[i-1] = s.points[i].Time.Sub(s.points[i-1].Time)
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i] < diffs[j] })
	d := diffs[len(diffs)/2]
	// Un salto de fin de semana no debe convertir una serie diaria en semanal.
	if d > 24*time.Hour && d <= 72*time.Hour {
		return 24 * time.Hour
	}
	return d
}

func (s PriceSeries) sub(from, to int) PriceSeries {
	cp := make([]PricePoint, to-from)
	copy(cp, s.points[from:to])
	return PriceSeries{ticker: s.ticker, points: cp}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
