package signal

// EMA is the recursive exponential moving average with alpha = 2/(span+1),
// seeded with the first sample: y[0] = x[0], y[t] = (1-a)·y[t-1] + a·x[t].
func EMA(x []float64, span int) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	a := spanAlpha(span)
	out[0] = x[0]
	for t := 1; t < len(x); t++ {
		out[t] = (1-a)*out[t-1] + a*x[t]
	}
	return out
}

// EMAAdjusted is the bias-corrected EMA: each output is the weighted mean of
// all samples so far with weights (1-a)^age. Early values are not dragged
// toward the first sample the way EMA's are.
func EMAAdjusted(x []float64, span int) []float64 {
	out := make([]float64, len(x))
	a := spanAlpha(span)
	w := 1 - a
	var num, den float64
	for t, v := range x {
		num = v + w*num
		den = 1 + w*den
		out[t] = num / den
	}
	return out
}

// Diff returns x[t]-x[t-1] with the first element defined as 0.
func Diff(x []float64) []float64 {
	out := make([]float64, len(x))
	for t := 1; t < len(x); t++ {
		out[t] = x[t] - x[t-1]
	}
	return out
}

// RateOfChange returns the percent change over period samples,
// 0 where the lagged sample does not exist yet.
func RateOfChange(x []float64, period int) []float64 {
	out := make([]float64, len(x))
	if period <= 0 {
		return out
	}
	for t := period; t < len(x); t++ {
		prev := x[t-period]
		if prev == 0 {
			continue
		}
		out[t] = (x[t] - prev) / prev * 100
	}
	return sanitize(out)
}

func spanAlpha(span int) float64 {
	if span < 1 {
		span = 1
	}
	return 2.0 / (float64(span) + 1.0)
}
