package pixelnorm

import (
	"errors"
	"testing"
)

// stackOf builds a stack of n rows x cols grayscale frames where every sample
// of frame k equals k.
func stackOf(n, rows, cols int) FrameStack {
	samples := make([]float64, 0, n*rows*cols)
	for k := 0; k < n; k++ {
		for i := 0; i < rows*cols; i++ {
			samples = append(samples, float64(k))
		}
	}

	return FrameStack{Rows: rows, Cols: cols, Channels: 1, Frames: n, Samples: samples}
}

func TestExtractFrameBounds(t *testing.T) {
	stack := stackOf(5, 2, 3)

	for i := 0; i < 5; i++ {
		frame, err := Extract(stack, i)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if frame.Rows != 2 || frame.Cols != 3 || frame.Channels != 1 || len(frame.Samples) != 6 {
			t.Fatalf("frame %d has unexpected geometry %+v", i, frame)
		}
		for _, v := range frame.Samples {
			if v != float64(i) {
				t.Fatalf("frame %d contains sample %v from another frame", i, v)
			}
		}
	}

	for _, i := range []int{-1, 5, 100} {
		if _, err := Extract(stack, i); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("frame %d: expected ErrOutOfRange, got %v", i, err)
		}
	}
}

func TestExtractSingleFrame(t *testing.T) {
	stack := stackOf(1, 4, 4)

	if _, err := Extract(stack, 0); err != nil {
		t.Fatal(err)
	}
	for _, i := range []int{-1, 1} {
		if _, err := Extract(stack, i); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("frame %d: expected ErrOutOfRange, got %v", i, err)
		}
	}
}

func TestExtractIsAView(t *testing.T) {
	stack := stackOf(3, 2, 2)

	frame, err := Extract(stack, 2)
	if err != nil {
		t.Fatal(err)
	}
	if &frame.Samples[0] != &stack.Samples[8] {
		t.Fatalf("frame was copied out of the stack")
	}
	if cap(frame.Samples) != 4 {
		t.Fatalf("frame capacity %d reaches beyond its own samples", cap(frame.Samples))
	}
}

func TestExtractColorStack(t *testing.T) {
	stack := FrameStack{Rows: 1, Cols: 2, Channels: 3, Frames: 2, Samples: []float64{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}}

	frame, err := Extract(stack, 1)
	if err != nil {
		t.Fatal(err)
	}
	if frame.Channels != 3 || frame.Samples[0] != 7 || frame.Samples[5] != 12 {
		t.Fatalf("unexpected color frame %+v", frame)
	}
}

func TestExtractInvalidStack(t *testing.T) {
	for name, stack := range map[string]FrameStack{
		"no rows":       {Rows: 0, Cols: 2, Channels: 1, Frames: 1},
		"bad channels":  {Rows: 1, Cols: 1, Channels: 2, Frames: 1, Samples: []float64{1, 2}},
		"short buffer":  {Rows: 2, Cols: 2, Channels: 1, Frames: 2, Samples: []float64{1, 2, 3, 4}},
		"no frames":     {Rows: 1, Cols: 1, Channels: 1, Frames: 0},
		"extra samples": {Rows: 1, Cols: 1, Channels: 1, Frames: 1, Samples: []float64{1, 2}},
	} {
		if _, err := Extract(stack, 0); !errors.Is(err, ErrInvalidFrame) {
			t.Fatalf("%s: expected ErrInvalidFrame, got %v", name, err)
		}
	}
}
