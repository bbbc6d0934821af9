package dicomsource

import (
	"errors"
	"fmt"
	"math"

	"github.com/carbocation/dicomview/pixelnorm"
)

// ErrNoVOI means the dataset carries neither a VOI LUT nor a window.
var ErrNoVOI = errors.New("dataset has no VOI LUT or window")

const (
	voiLinear      = "LINEAR"
	voiLinearExact = "LINEAR_EXACT"
	voiSigmoid     = "SIGMOID"
)

// LUT is one item of a VOI LUT Sequence.
type LUT struct {
	FirstMapped int
	Bits        int
	Data        []float64
}

// NewLUT builds a LUT from the three LUT Descriptor values (entry count,
// first stored value mapped, bits per entry) and the LUT Data. An entry count
// of 0 means 65536 entries.
func NewLUT(descriptor, data []float64) (LUT, error) {
	if len(descriptor) < 3 {
		return LUT{}, fmt.Errorf("LUT descriptor has %d values, expected 3", len(descriptor))
	}

	entries := int(descriptor[0])
	if entries < 0 {
		return LUT{}, fmt.Errorf("LUT descriptor has a negative entry count %d", entries)
	}
	if entries == 0 {
		entries = 1 << 16
	}
	if len(data) < entries {
		return LUT{}, fmt.Errorf("LUT descriptor promises %d entries, data has %d", entries, len(data))
	}

	return LUT{
		FirstMapped: int(descriptor[1]),
		Bits:        int(descriptor[2]),
		Data:        data[:entries],
	}, nil
}

// Lookup maps a value through the table. Values before the first mapped
// value use the first entry; values past the end use the last entry.
func (l LUT) Lookup(v float64) float64 {
	idx := int(math.Floor(v)) - l.FirstMapped
	if idx < 0 {
		idx = 0
	}
	if idx >= len(l.Data) {
		idx = len(l.Data) - 1
	}
	return l.Data[idx]
}

// VOI is the dataset's value-of-interest transform: the first VOI LUT if
// one is present, otherwise the first stored window evaluated with the
// dataset's VOI LUT Function.
type VOI struct {
	LUT      *LUT
	Window   *pixelnorm.Window
	Function string
}

// VOICurve returns the dataset's VOI transform.
func (a Attributes) VOICurve() VOI {
	out := VOI{Function: a.VOILUTFunction}
	if len(a.VOILUTs) > 0 {
		lut := a.VOILUTs[0]
		out.LUT = &lut
	}
	if w, ok := a.DefaultWindow(); ok {
		out.Window = &w
	}
	return out
}

// Apply satisfies pixelnorm.VOICurve. Output values lie in [0,1] for
// window functions and in the table's own range for LUTs.
func (c VOI) Apply(values []float64) ([]float64, error) {
	if c.LUT != nil {
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = c.LUT.Lookup(v)
		}
		return out, nil
	}

	if c.Window == nil {
		return nil, ErrNoVOI
	}

	fn, err := windowFunction(c.Function, *c.Window)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = fn(v)
	}

	return out, nil
}

func windowFunction(name string, w pixelnorm.Window) (func(float64) float64, error) {
	switch name {
	case "", voiLinear:
		if w.Width < 1 {
			return nil, fmt.Errorf("%s window width %v is below 1", voiLinear, w.Width)
		}
		return func(v float64) float64 { return linearWindow(v, w.Center, w.Width) }, nil
	case voiLinearExact:
		if !(w.Width > 0) {
			return nil, fmt.Errorf("%s window width %v is not positive", voiLinearExact, w.Width)
		}
		return func(v float64) float64 { return linearExactWindow(v, w.Center, w.Width) }, nil
	case voiSigmoid:
		if !(w.Width > 0) {
			return nil, fmt.Errorf("%s window width %v is not positive", voiSigmoid, w.Width)
		}
		return func(v float64) float64 { return sigmoidWindow(v, w.Center, w.Width) }, nil
	}

	return nil, fmt.Errorf("unsupported VOI LUT function %q", name)
}

// linearWindow is the standard DICOM window (PS3.3 C.11.2.1.2.1):
//
//	if x <= c - 0.5 - (w-1)/2, y = 0
//	else if x > c - 0.5 + (w-1)/2, y = 1
//	else y = (x - (c - 0.5)) / (w-1) + 0.5
func linearWindow(x, center, width float64) float64 {
	c := center - 0.5
	w := width - 1.0

	if x <= c-0.5*w {
		return 0
	}
	if x > c+0.5*w {
		return 1
	}

	return (x-c)/w + 0.5
}

func linearExactWindow(x, center, width float64) float64 {
	if x <= center-width/2 {
		return 0
	}
	if x > center+width/2 {
		return 1
	}

	return (x-center)/width + 0.5
}

func sigmoidWindow(x, center, width float64) float64 {
	return 1 / (1 + math.Exp(-4*(x-center)/width))
}
