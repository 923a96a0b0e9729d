package audioengine

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ToDecibels converts a linear pressure to dBFS. Zero pressure is -Inf.
func ToDecibels(pressure float64) float64 {
	if pressure <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(pressure)
}

// blockLevels returns the sine-equivalent RMS (mean of 2*x^2) and the absolute
// peak of one channel block.
func blockLevels(samples []float64) (rms, peak float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	sumSq := floats.Dot(samples, samples)
	rms = math.Sqrt(2 * sumSq / float64(len(samples)))
	peak = math.Max(floats.Max(samples), -floats.Min(samples))
	return rms, peak
}

// powerMean combines levels in the power domain: sqrt(sum(v^2) / len(v)).
func powerMean(levels []float64) float64 {
	if len(levels) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(levels, levels) / float64(len(levels)))
}

// nthHighestDistinct walks an ascending slice from the top and returns its
// n-th distinct value. With fewer than n distinct values the smallest one
// seen is returned, so a single repeated value is reused.
func nthHighestDistinct(sorted []float64, n int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	val := sorted[len(sorted)-1]
	seen := 1
	for i := len(sorted) - 2; i >= 0 && seen < n; i-- {
		if sorted[i] != val {
			val = sorted[i]
			seen++
		}
	}
	return val
}

// drScore is 20*log10(peak/pseudoRMS). Silent or otherwise degenerate channels
// score 0 instead of producing NaN or Inf.
func drScore(peak, pseudoRMS float64) float64 {
	if pseudoRMS == 0 {
		return 0
	}
	ratio := peak / pseudoRMS
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return 0
	}
	return 20 * math.Log10(ratio)
}
