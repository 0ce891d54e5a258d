package stat

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation (no sample correction).
// Empty and single-element inputs both yield 0.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// LogReturns returns ln(p[i]/p[i-1]) for i >= 1; length is len(prices)-1.
// Non-positive price pairs contribute 0 instead of NaN/Inf.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i] > 0 && prices[i-1] > 0 {
			out[i-1] = math.Log(prices[i] / prices[i-1])
		}
	}
	return out
}

// Percentile returns the p-th percentile (0..100) using linear interpolation
// between order statistics. Input is not mutated.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Covariance returns the population covariance of two equal-length series,
// 0 when lengths differ or fewer than two points are supplied.
func Covariance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	ma := Mean(a)
	mb := Mean(b)
	sum := 0.0
	for i := range a {
		sum += (a[i] - ma) * (b[i] - mb)
	}
	return sum / float64(len(a))
}

// SMA returns the simple average of the last period elements. When fewer
// elements exist the whole series is averaged.
func SMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	if period > len(values) {
		period = len(values)
	}
	return Mean(values[len(values)-period:])
}

// EMA returns the exponential moving average series. Indices before period-1
// pass the raw value through, index period-1 seeds with the simple average of
// the first period values, and later indices follow the standard recurrence
// with k = 2/(period+1). This one implementation backs both MACD and the
// long-horizon trend reference.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}
	if period == 1 || period > len(values) {
		copy(out, values)
		return out
	}
	copy(out[:period-1], values[:period-1])
	out[period-1] = Mean(values[:period])
	k := 2.0 / (float64(period) + 1)
	for i := period; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
