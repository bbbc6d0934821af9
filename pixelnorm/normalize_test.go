package pixelnorm

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func grayFrame(rows, cols int, samples ...float64) RawFrame {
	return RawFrame{Rows: rows, Cols: cols, Channels: 1, Samples: samples}
}

func TestNormalizeWorkedExample(t *testing.T) {
	frame := grayFrame(2, 2, 0, 100, 200, 300)
	window := Window{Center: 150, Width: 200}

	for _, v := range []struct {
		Polarity Polarity
		Expected []byte
	}{
		{Normal, []byte{0, 64, 191, 255}},
		{Inverted, []byte{255, 191, 64, 0}},
	} {
		img, err := Normalize(frame, 1, v.Polarity, WithWindow(window))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(img.Pix, v.Expected) {
			t.Fatalf("%s: got %v, expected %v", v.Polarity, img.Pix, v.Expected)
		}
		if img.Strategy != StrategyExplicit {
			t.Fatalf("%s: strategy %s, expected explicit", v.Polarity, img.Strategy)
		}
		if img.Rows != 2 || img.Cols != 2 || img.Channels != 1 || img.Stride() != 2 {
			t.Fatalf("unexpected geometry %dx%dx%d", img.Rows, img.Cols, img.Channels)
		}
	}
}

func TestNormalizeCalibrationUsesSameFormula(t *testing.T) {
	window := Window{Center: 150, Width: 200}
	expected := []byte{0, 64, 191, 255}

	for _, v := range []struct {
		Name        string
		Frame       RawFrame
		Calibration Calibration
	}{
		{"identity", grayFrame(2, 2, 0, 100, 200, 300), IdentityCalibration},
		{"slope", grayFrame(2, 2, 0, 1, 2, 3), Calibration{Slope: 100, Intercept: 0}},
		{"intercept", grayFrame(2, 2, 1024, 1124, 1224, 1324), Calibration{Slope: 1, Intercept: -1024}},
		{"both", grayFrame(2, 2, 10, 60, 110, 160), Calibration{Slope: 2, Intercept: -20}},
	} {
		img, err := Normalize(v.Frame, 1, Normal, WithCalibration(v.Calibration), WithWindow(window))
		if err != nil {
			t.Fatalf("%s: %v", v.Name, err)
		}
		if !bytes.Equal(img.Pix, expected) {
			t.Fatalf("%s: got %v, expected %v", v.Name, img.Pix, expected)
		}
	}
}

func TestNormalizeColorIsIdentity(t *testing.T) {
	samples := make([]float64, 0, 4*3*3)
	expected := make([]byte, 0, cap(samples))
	for i := 0; i < 4*3*3; i++ {
		b := byte((i * 37) % 256)
		samples = append(samples, float64(b))
		expected = append(expected, b)
	}
	frame := RawFrame{Rows: 4, Cols: 3, Channels: 3, Samples: samples}

	// Polarity, calibration and windows are all ignored for color.
	for _, opts := range [][]Option{
		nil,
		{WithWindow(Window{Center: 10, Width: 1})},
		{WithCalibration(Calibration{Slope: -3, Intercept: 99})},
		{WithVOI(VOIFunc(func(v []float64) ([]float64, error) { return nil, errors.New("boom") }))},
	} {
		for _, polarity := range []Polarity{Normal, Inverted} {
			img, err := Normalize(frame, 3, polarity, opts...)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(img.Pix, expected) {
				t.Fatalf("color path altered bytes: got %v, expected %v", img.Pix, expected)
			}
			if img.Channels != 3 || img.Strategy != StrategyColor || img.Stride() != 9 {
				t.Fatalf("unexpected color output: channels %d strategy %s", img.Channels, img.Strategy)
			}
		}
	}
}

func TestNormalizeColorBroadcastsSingleChannel(t *testing.T) {
	frame := grayFrame(1, 3, 5, 128, 250)

	img, err := Normalize(frame, 3, Normal)
	if err != nil {
		t.Fatal(err)
	}

	expected := []byte{5, 5, 5, 128, 128, 128, 250, 250, 250}
	if !bytes.Equal(img.Pix, expected) {
		t.Fatalf("got %v, expected %v", img.Pix, expected)
	}
}

func TestNormalizeRejectsColorDeclaredGray(t *testing.T) {
	frame := RawFrame{Rows: 1, Cols: 1, Channels: 3, Samples: []float64{1, 2, 3}}
	if _, err := Normalize(frame, 1, Normal); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
	if _, err := Normalize(frame, 2, Normal); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame for 2 channels, got %v", err)
	}
}

func TestNormalizeInvalidWindow(t *testing.T) {
	frame := grayFrame(2, 2, 0, 100, 200, 300)

	for _, w := range []Window{
		{Center: 100, Width: 0},
		{Center: 100, Width: -5},
		{Center: 100, Width: math.NaN()},
		{Center: 100, Width: math.Inf(1)},
		{Center: math.NaN(), Width: 10},
	} {
		if _, err := Normalize(frame, 1, Normal, WithWindow(w)); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("window %+v: expected ErrInvalidWindow, got %v", w, err)
		}
	}
}

func TestNormalizeRangeInvariant(t *testing.T) {
	ramp := make([]float64, 64)
	for i := range ramp {
		ramp[i] = float64(i*1000) - 20000
	}

	frames := map[string]RawFrame{
		"zero":     grayFrame(2, 3, 0, 0, 0, 0, 0, 0),
		"max":      grayFrame(2, 3, 65535, 65535, 65535, 65535, 65535, 65535),
		"constant": grayFrame(1, 4, 42, 42, 42, 42),
		"ramp":     grayFrame(8, 8, ramp...),
		"negative": grayFrame(1, 3, -3000, -2000, -1000),
	}

	optionSets := map[string][]Option{
		"percentile": nil,
		"explicit":   {WithWindow(Window{Center: 40, Width: 400})},
		"narrow":     {WithWindow(Window{Center: 0, Width: 1e-9})},
		"voi":        {WithVOI(VOIFunc(func(v []float64) ([]float64, error) { return v, nil }))},
	}

	for frameName, frame := range frames {
		for optName, opts := range optionSets {
			for _, polarity := range []Polarity{Normal, Inverted} {
				img, err := Normalize(frame, 1, polarity, opts...)
				if err != nil {
					t.Fatalf("%s/%s: %v", frameName, optName, err)
				}
				if len(img.Pix) != frame.Rows*frame.Cols {
					t.Fatalf("%s/%s: %d bytes for %d pixels", frameName, optName, len(img.Pix), frame.Rows*frame.Cols)
				}
			}
		}
	}
}

func TestNormalizePolaritySymmetry(t *testing.T) {
	samples := make([]float64, 0, 100)
	for i := 0; i < 100; i++ {
		samples = append(samples, float64((i*7919)%4096))
	}
	frame := grayFrame(10, 10, samples...)

	for _, opts := range [][]Option{
		{WithWindow(Window{Center: 2048, Width: 4096})},
		{WithWindow(Window{Center: 1000, Width: 255})},
		{WithWindow(Window{Center: 0.5, Width: 2}), WithCalibration(Calibration{Slope: 1.0 / 4096, Intercept: 0})},
		nil,
		{WithVOI(VOIFunc(func(v []float64) ([]float64, error) {
			out := make([]float64, len(v))
			for i := range v {
				out[i] = math.Sqrt(v[i])
			}
			return out, nil
		}))},
	} {
		normal, err := Normalize(frame, 1, Normal, opts...)
		if err != nil {
			t.Fatal(err)
		}
		inverted, err := Normalize(frame, 1, Inverted, opts...)
		if err != nil {
			t.Fatal(err)
		}

		for i := range normal.Pix {
			if inverted.Pix[i] != 255-normal.Pix[i] {
				t.Fatalf("pixel %d: inverted %d, normal %d", i, inverted.Pix[i], normal.Pix[i])
			}
		}
	}
}

func TestNormalizeExplicitWindowPrecedence(t *testing.T) {
	frame := grayFrame(2, 2, 0, 100, 200, 300)
	window := WithWindow(Window{Center: 150, Width: 200})

	reference, err := Normalize(frame, 1, Normal, window)
	if err != nil {
		t.Fatal(err)
	}

	curves := []VOICurve{
		VOIFunc(func(v []float64) ([]float64, error) { return nil, errors.New("no curve") }),
		VOIFunc(func(v []float64) ([]float64, error) {
			out := make([]float64, len(v))
			for i := range v {
				out[i] = -v[i]
			}
			return out, nil
		}),
	}

	for _, curve := range curves {
		img, err := Normalize(frame, 1, Normal, WithVOI(curve), window)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(img.Pix, reference.Pix) || img.Strategy != StrategyExplicit {
			t.Fatalf("VOI availability changed explicit output: %v vs %v", img.Pix, reference.Pix)
		}
	}
}

func TestNormalizeVOIMinMaxStretch(t *testing.T) {
	frame := grayFrame(2, 2, 0, 100, 200, 300)
	double := VOIFunc(func(v []float64) ([]float64, error) {
		out := make([]float64, len(v))
		for i := range v {
			out[i] = 2 * v[i]
		}
		return out, nil
	})

	img, err := Normalize(frame, 1, Normal, WithVOI(double))
	if err != nil {
		t.Fatal(err)
	}
	if img.Strategy != StrategyVOI {
		t.Fatalf("strategy %s, expected voi", img.Strategy)
	}
	if expected := []byte{0, 85, 170, 255}; !bytes.Equal(img.Pix, expected) {
		t.Fatalf("got %v, expected %v", img.Pix, expected)
	}
	if img.Window != (Window{}) {
		t.Fatalf("VOI output should not report a linear window, got %+v", img.Window)
	}
}

func TestNormalizeVOIFlatOutputIsZero(t *testing.T) {
	frame := grayFrame(2, 2, 0, 100, 200, 300)
	flat := VOIFunc(func(v []float64) ([]float64, error) {
		out := make([]float64, len(v))
		for i := range out {
			out[i] = 17
		}
		return out, nil
	})

	for _, v := range []struct {
		Polarity Polarity
		Expected byte
	}{{Normal, 0}, {Inverted, 255}} {
		img, err := Normalize(frame, 1, v.Polarity, WithVOI(flat))
		if err != nil {
			t.Fatal(err)
		}
		for i, b := range img.Pix {
			if b != v.Expected {
				t.Fatalf("%s pixel %d: got %d, expected %d", v.Polarity, i, b, v.Expected)
			}
		}
	}
}

func TestNormalizeVOIFailureFallsBackToPercentile(t *testing.T) {
	frame := grayFrame(2, 2, 0, 100, 200, 300)

	reference, err := Normalize(frame, 1, Normal)
	if err != nil {
		t.Fatal(err)
	}
	if reference.Strategy != StrategyPercentile {
		t.Fatalf("strategy %s, expected percentile", reference.Strategy)
	}

	for name, curve := range map[string]VOICurve{
		"error":  VOIFunc(func(v []float64) ([]float64, error) { return nil, errors.New("unsupported") }),
		"short":  VOIFunc(func(v []float64) ([]float64, error) { return v[:1], nil }),
		"nan":    VOIFunc(func(v []float64) ([]float64, error) { return []float64{0, math.NaN(), 1, 2}, nil }),
		"infinf": VOIFunc(func(v []float64) ([]float64, error) { return []float64{0, math.Inf(1), 1, 2}, nil }),
	} {
		img, err := Normalize(frame, 1, Normal, WithVOI(curve))
		if err != nil {
			t.Fatalf("%s: VOI failure surfaced as error: %v", name, err)
		}
		if img.Strategy != StrategyPercentile || !bytes.Equal(img.Pix, reference.Pix) {
			t.Fatalf("%s: got %v (%s), expected %v (percentile)", name, img.Pix, img.Strategy, reference.Pix)
		}
	}
}

func TestNormalizeDegenerateDistribution(t *testing.T) {
	for _, value := range []float64{0, 1, 42, -1000, 65535} {
		frame := grayFrame(3, 3, value, value, value, value, value, value, value, value, value)

		img, err := Normalize(frame, 1, Normal)
		if err != nil {
			t.Fatal(err)
		}
		if img.Strategy != StrategyPercentile {
			t.Fatalf("strategy %s, expected percentile", img.Strategy)
		}
		if img.Window.Width != minPercentileWidth {
			t.Fatalf("degenerate width %v, expected %v", img.Window.Width, minPercentileWidth)
		}
		for i, b := range img.Pix {
			if b != 0 {
				t.Fatalf("value %v pixel %d: got %d, expected 0", value, i, b)
			}
		}
	}
}

func TestNormalizePercentileStretch(t *testing.T) {
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = float64(i)
	}
	frame := grayFrame(10, 10, samples...)

	img, err := Normalize(frame, 1, Normal)
	if err != nil {
		t.Fatal(err)
	}
	if img.Strategy != StrategyPercentile {
		t.Fatalf("strategy %s, expected percentile", img.Strategy)
	}
	if img.Pix[0] != 0 || img.Pix[99] != 255 {
		t.Fatalf("ramp ends mapped to %d and %d", img.Pix[0], img.Pix[99])
	}
	for i := 1; i < len(img.Pix); i++ {
		if img.Pix[i] < img.Pix[i-1] {
			t.Fatalf("ramp output not monotone at %d: %d < %d", i, img.Pix[i], img.Pix[i-1])
		}
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	samples := []float64{0, 100, 200, 300}
	original := append([]float64(nil), samples...)
	frame := grayFrame(2, 2, samples...)

	if _, err := Normalize(frame, 1, Inverted, WithCalibration(Calibration{Slope: 3, Intercept: 7})); err != nil {
		t.Fatal(err)
	}

	for i := range samples {
		if samples[i] != original[i] {
			t.Fatalf("sample %d changed from %v to %v", i, original[i], samples[i])
		}
	}
}

func TestParsePolarity(t *testing.T) {
	for _, v := range []struct {
		In       string
		Expected Polarity
	}{
		{"MONOCHROME1", Inverted},
		{"monochrome1", Inverted},
		{" Monochrome1 ", Inverted},
		{"MONOCHROME2", Normal},
		{"RGB", Normal},
		{"", Normal},
	} {
		if p := ParsePolarity(v.In); p != v.Expected {
			t.Fatalf("%q: got %s, expected %s", v.In, p, v.Expected)
		}
	}
}

func TestDisplayImageImage(t *testing.T) {
	gray := DisplayImage{Rows: 1, Cols: 2, Channels: 1, Pix: []byte{10, 20}}
	g := gray.Image()
	if b := g.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
		t.Fatalf("gray bounds %v", b)
	}
	if r, _, _, _ := g.At(1, 0).RGBA(); r>>8 != 20 {
		t.Fatalf("gray pixel (1,0) = %d, expected 20", r>>8)
	}

	color := DisplayImage{Rows: 1, Cols: 1, Channels: 3, Pix: []byte{1, 2, 3}}
	r, gg, b, a := color.Image().At(0, 0).RGBA()
	if r>>8 != 1 || gg>>8 != 2 || b>>8 != 3 || a>>8 != 255 {
		t.Fatalf("color pixel = %d %d %d %d", r>>8, gg>>8, b>>8, a>>8)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float64{0, 100, 200, 300}

	for _, v := range []struct {
		P        float64
		Expected float64
	}{
		{0, 0},
		{0.01, 3},
		{0.5, 150},
		{0.99, 297},
		{1, 300},
	} {
		if got := Percentile(sorted, v.P); math.Abs(got-v.Expected) > 1e-9 {
			t.Fatalf("Percentile(%v): got %v, expected %v", v.P, got, v.Expected)
		}
	}

	if got := Percentile([]float64{7}, 0.99); got != 7 {
		t.Fatalf("single value: got %v, expected 7", got)
	}
}

func TestPercentileWindow(t *testing.T) {
	w := PercentileWindow([]float64{300, 0, 200, 100})
	if math.Abs(w.Low()-3) > 1e-9 || math.Abs(w.High()-297) > 1e-9 {
		t.Fatalf("window [%v, %v], expected [3, 297]", w.Low(), w.High())
	}
}
