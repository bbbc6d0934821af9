// Package pixelnorm turns raw DICOM sample buffers into 8-bit display
// buffers. It knows nothing about files: callers hand it a frame stack, the
// calibration and polarity attributes, and optionally an explicit window or a
// VOI curve, and get back a tightly packed byte buffer.
package pixelnorm

import (
	"errors"
	"strings"
)

var (
	// ErrOutOfRange is returned when a frame index falls outside of a stack.
	ErrOutOfRange = errors.New("frame index out of range")

	// ErrInvalidWindow is returned when an explicitly requested window has a
	// non-positive (or non-finite) width.
	ErrInvalidWindow = errors.New("invalid window")

	// ErrInvalidFrame is returned for buffers whose dimensions do not
	// describe their samples.
	ErrInvalidFrame = errors.New("invalid frame")
)

// RawFrame is a single rows x cols grid of samples. Color frames are
// interleaved (RGBRGB...). The pipeline only ever reads Samples.
type RawFrame struct {
	Rows     int
	Cols     int
	Channels int
	Samples  []float64
}

// FrameStack holds one or more frames back to back in a single buffer.
type FrameStack struct {
	Rows     int
	Cols     int
	Channels int
	Frames   int
	Samples  []float64
}

// FrameSize is the number of samples in one frame of the stack.
func (s FrameStack) FrameSize() int {
	return s.Rows * s.Cols * s.Channels
}

// Calibration is the modality rescale applied to grayscale samples.
type Calibration struct {
	Slope     float64
	Intercept float64
}

// IdentityCalibration is used whenever no rescale is supplied.
var IdentityCalibration = Calibration{Slope: 1, Intercept: 0}

// Apply maps a stored value to a modality value.
func (c Calibration) Apply(v float64) float64 {
	return v*c.Slope + c.Intercept
}

// Window is a linear center/width contrast window.
type Window struct {
	Center float64
	Width  float64
}

func (w Window) Low() float64 {
	return w.Center - w.Width/2
}

func (w Window) High() float64 {
	return w.Center + w.Width/2
}

// Polarity says whether high sample values render bright or dark.
type Polarity int

const (
	Normal Polarity = iota
	Inverted
)

func (p Polarity) String() string {
	if p == Inverted {
		return "INVERTED"
	}
	return "NORMAL"
}

// invertedPhotometric is the photometric interpretation in which the
// minimum sample value is meant to be displayed as white.
const invertedPhotometric = "MONOCHROME1"

// ParsePolarity maps a photometric interpretation string to a Polarity.
// Only MONOCHROME1 (any case, surrounding whitespace ignored) is Inverted.
func ParsePolarity(photometric string) Polarity {
	if strings.EqualFold(strings.TrimSpace(photometric), invertedPhotometric) {
		return Inverted
	}
	return Normal
}

// Strategy records which branch produced a DisplayImage.
type Strategy int

const (
	StrategyColor Strategy = iota
	StrategyExplicit
	StrategyVOI
	StrategyPercentile
)

func (s Strategy) String() string {
	switch s {
	case StrategyColor:
		return "color"
	case StrategyExplicit:
		return "explicit"
	case StrategyVOI:
		return "voi"
	case StrategyPercentile:
		return "percentile"
	}
	return "unknown"
}

// VOICurve is a value-of-interest transform bundled with the image data. It
// must return one output value per input value; any error (or a malformed
// result) makes the normalizer fall back to a percentile window.
type VOICurve interface {
	Apply(values []float64) ([]float64, error)
}

// VOIFunc adapts an ordinary function to VOICurve.
type VOIFunc func(values []float64) ([]float64, error)

func (f VOIFunc) Apply(values []float64) ([]float64, error) {
	return f(values)
}
