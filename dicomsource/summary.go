package dicomsource

import (
	"fmt"
	"math"
	"sort"

	"github.com/carbocation/dicomview/pixelnorm"
	"github.com/carbocation/pfx"
	"github.com/carbocation/runningvariance"
	"github.com/montanaflynn/stats"
)

// PixelStats describes the distribution of one frame's calibrated values.
type PixelStats struct {
	N      int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	StdDev float64
	P01    float64
	P99    float64
}

// CalibratedValues applies the calibration to a grayscale frame. Color
// frames are returned uncalibrated, since rescale does not apply to them.
func CalibratedValues(frame pixelnorm.RawFrame, cal pixelnorm.Calibration) []float64 {
	out := make([]float64, len(frame.Samples))
	if frame.Channels != 1 {
		copy(out, frame.Samples)
		return out
	}

	for i, v := range frame.Samples {
		out[i] = cal.Apply(v)
	}

	return out
}

// SummarizeFrame computes PixelStats over a frame's calibrated values.
func SummarizeFrame(frame pixelnorm.RawFrame, cal pixelnorm.Calibration) (PixelStats, error) {
	data := stats.Float64Data(CalibratedValues(frame, cal))

	out := PixelStats{N: data.Len()}
	var err error

	if out.Min, err = data.Min(); err != nil {
		return out, pfx.Err(err)
	}
	if out.Max, err = data.Max(); err != nil {
		return out, pfx.Err(err)
	}
	if out.Mean, err = data.Mean(); err != nil {
		return out, pfx.Err(err)
	}
	if out.Median, err = data.Median(); err != nil {
		return out, pfx.Err(err)
	}
	if out.StdDev, err = data.StandardDeviation(); err != nil {
		return out, pfx.Err(err)
	}

	// Same estimator as the auto window, which also works on small frames.
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	out.P01 = pixelnorm.Percentile(sorted, 0.01)
	out.P99 = pixelnorm.Percentile(sorted, 0.99)

	return out, nil
}

// StackStats describes the calibrated values of every frame of a stack.
type StackStats struct {
	N      int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// SummarizeStack makes one pass over all frames without holding more than
// one frame's calibrated values at a time.
func SummarizeStack(stack pixelnorm.FrameStack, cal pixelnorm.Calibration) (StackStats, error) {
	rs := runningvariance.NewRunningStat()
	out := StackStats{Min: math.Inf(1), Max: math.Inf(-1)}

	for k := 0; k < stack.Frames; k++ {
		frame, err := pixelnorm.Extract(stack, k)
		if err != nil {
			return out, err
		}

		for _, v := range CalibratedValues(frame, cal) {
			rs.Push(v)
			if v < out.Min {
				out.Min = v
			}
			if v > out.Max {
				out.Max = v
			}
		}
	}

	out.N = int(rs.N)
	if out.N == 0 {
		return out, fmt.Errorf("stack has no samples")
	}
	out.Mean = rs.Mean()
	out.StdDev = rs.StandardDeviation()

	return out, nil
}
