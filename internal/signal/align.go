package signal

import "time"

// AlignByDate maps values keyed by dates onto calendar. Calendar entries with
// no matching date get fill. Both date slices must be ascending.
func AlignByDate(calendar, dates []time.Time, values []float64, fill float64) []float64 {
	out := make([]float64, len(calendar))
	j := 0
	for i, day := range calendar {
		for j < len(dates) && dates[j].Before(day) {
			j++
		}
		if j < len(dates) && dates[j].Equal(day) {
			out[i] = values[j]
			continue
		}
		out[i] = fill
	}
	return out
}
