package pixelnorm

import (
	"fmt"
	"math"
)

type normalizeOptions struct {
	calibration Calibration
	window      *Window
	voi         VOICurve
}

// Option customizes a single Normalize call.
type Option func(o *normalizeOptions)

// WithCalibration sets the modality rescale. Without it the identity
// calibration is used.
func WithCalibration(c Calibration) Option {
	return func(o *normalizeOptions) {
		o.calibration = c
	}
}

// WithWindow requests an explicit center/width window. It takes precedence
// over any VOI curve.
func WithWindow(w Window) Option {
	return func(o *normalizeOptions) {
		o.window = &w
	}
}

// WithVOI offers a VOI curve to use when no explicit window is given.
func WithVOI(curve VOICurve) Option {
	return func(o *normalizeOptions) {
		o.voi = curve
	}
}

// Normalize converts frame into an 8-bit display image. channels is the
// declared sample count per pixel (1 or 3). Calibration, windowing and
// polarity only apply to grayscale; color samples are copied through.
func Normalize(frame RawFrame, channels int, polarity Polarity, opts ...Option) (DisplayImage, error) {
	o := normalizeOptions{calibration: IdentityCalibration}
	for _, opt := range opts {
		opt(&o)
	}

	if err := frame.Validate(); err != nil {
		return DisplayImage{}, err
	}

	switch channels {
	case 3:
		return normalizeColor(frame), nil
	case 1:
		if frame.Channels != 1 {
			return DisplayImage{}, fmt.Errorf("%w: %d-channel frame declared as grayscale", ErrInvalidFrame, frame.Channels)
		}
		return normalizeGray(frame, polarity, o)
	}

	return DisplayImage{}, fmt.Errorf("%w: %d channels declared", ErrInvalidFrame, channels)
}

// normalizeColor interleaves samples into RGB bytes. Single-channel frames
// are broadcast into all three channels.
func normalizeColor(frame RawFrame) DisplayImage {
	nPixels := frame.Rows * frame.Cols
	pix := make([]byte, nPixels*3)

	if frame.Channels == 3 {
		for i, v := range frame.Samples {
			pix[i] = clampByte(v)
		}
	} else {
		for i, v := range frame.Samples {
			b := clampByte(v)
			pix[3*i] = b
			pix[3*i+1] = b
			pix[3*i+2] = b
		}
	}

	return DisplayImage{
		Rows:     frame.Rows,
		Cols:     frame.Cols,
		Channels: 3,
		Pix:      pix,
		Strategy: StrategyColor,
	}
}

func normalizeGray(frame RawFrame, polarity Polarity, o normalizeOptions) (DisplayImage, error) {
	if o.window != nil {
		if w := o.window.Width; !(w > 0) || math.IsInf(w, 0) || math.IsNaN(o.window.Center) || math.IsInf(o.window.Center, 0) {
			return DisplayImage{}, fmt.Errorf("%w: center %v width %v", ErrInvalidWindow, o.window.Center, o.window.Width)
		}
	}

	values := make([]float64, len(frame.Samples))
	for i, v := range frame.Samples {
		values[i] = o.calibration.Apply(v)
	}

	res := resolveWindow(values, o.window, o.voi)

	pix := make([]byte, len(values))
	switch res.strategy {
	case StrategyVOI:
		for i, u := range res.unit {
			pix[i] = quantize(u, polarity)
		}
	default:
		low, high := res.window.Low(), res.window.High()
		for i, v := range values {
			pix[i] = quantize(unitLinear(v, low, high), polarity)
		}
	}

	out := DisplayImage{
		Rows:     frame.Rows,
		Cols:     frame.Cols,
		Channels: 1,
		Pix:      pix,
		Strategy: res.strategy,
	}
	if res.strategy != StrategyVOI {
		out.Window = res.window
	}

	return out, nil
}

// quantize maps a unit value to a byte. Inversion is 1-u; it is taken on the
// quantized value so that an inverted pixel is exactly 255 minus the normal
// one.
func quantize(u float64, polarity Polarity) byte {
	b := clampByte(math.Round(u * 255))
	if polarity == Inverted {
		return 255 - b
	}
	return b
}

func clampByte(v float64) byte {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v)
}
