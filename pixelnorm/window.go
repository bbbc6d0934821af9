package pixelnorm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	lowPercentile  = 0.01
	highPercentile = 0.99

	// minPercentileWidth is the width used when the percentile range
	// collapses (hi <= lo).
	minPercentileWidth = 1.0
)

// resolution is the tagged outcome of window resolution. For the linear
// strategies window is set and unit is nil; for StrategyVOI unit holds the
// already-normalized [0,1] values.
type resolution struct {
	strategy Strategy
	window   Window
	unit     []float64
}

// resolveWindow picks, in priority order, the explicit window, the VOI
// curve, or a percentile window computed from the calibrated values.
func resolveWindow(values []float64, explicit *Window, curve VOICurve) resolution {
	if explicit != nil {
		return resolution{strategy: StrategyExplicit, window: *explicit}
	}

	if curve != nil {
		if unit, ok := applyVOI(values, curve); ok {
			return resolution{strategy: StrategyVOI, unit: unit}
		}
	}

	return resolution{strategy: StrategyPercentile, window: PercentileWindow(values)}
}

// applyVOI runs the curve and stretches its output by the output's own
// min/max. ok is false if the curve failed or returned something unusable.
func applyVOI(values []float64, curve VOICurve) (unit []float64, ok bool) {
	out, err := curve.Apply(values)
	if err != nil || len(out) != len(values) {
		return nil, false
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	unit = make([]float64, len(out))
	if hi <= lo {
		// Flat curve output: everything maps to zero.
		return unit, true
	}

	span := hi - lo
	for i, v := range out {
		unit[i] = (v - lo) / span
	}

	return unit, true
}

// PercentileWindow derives a window spanning the 1st to 99th percentile of
// values. When that range is empty the window is one unit wide and starts
// at the 1st percentile, so a constant image maps entirely to zero.
func PercentileWindow(values []float64) Window {
	if len(values) == 0 {
		return Window{Center: minPercentileWidth / 2, Width: minPercentileWidth}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	lo := Percentile(sorted, lowPercentile)
	hi := Percentile(sorted, highPercentile)

	if hi <= lo {
		return Window{Center: lo + minPercentileWidth/2, Width: minPercentileWidth}
	}

	return Window{Center: (lo + hi) / 2, Width: hi - lo}
}

// Percentile returns the p-quantile (p in [0,1]) of sorted, interpolating
// linearly between the closest ranks at position (n-1)*p. sorted must be
// ascending and non-empty.
func Percentile(sorted []float64, p float64) float64 {
	n := float64(len(sorted))
	if len(sorted) == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	// stat.LinInterp places p at rank n*p; shift it to (n-1)*p+1.
	return stat.Quantile(((n-1)*p+1)/n, stat.LinInterp, sorted, nil)
}

// unitLinear maps v through the window into [0,1].
func unitLinear(v, low, high float64) float64 {
	u := (v - low) / (high - low)
	if u < 0 || math.IsNaN(u) {
		return 0
	}
	if u > 1 {
		return 1
	}
	return u
}
