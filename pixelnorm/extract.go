package pixelnorm

import "fmt"

// Validate checks that the stack's dimensions describe its sample buffer.
func (s FrameStack) Validate() error {
	if s.Rows <= 0 || s.Cols <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFrame, s.Rows, s.Cols)
	}
	if s.Channels != 1 && s.Channels != 3 {
		return fmt.Errorf("%w: %d channels", ErrInvalidFrame, s.Channels)
	}
	if s.Frames <= 0 {
		return fmt.Errorf("%w: %d frames", ErrInvalidFrame, s.Frames)
	}
	if want := s.FrameSize() * s.Frames; len(s.Samples) != want {
		return fmt.Errorf("%w: have %d samples, dimensions call for %d", ErrInvalidFrame, len(s.Samples), want)
	}

	return nil
}

// Extract returns frame index of the stack. The returned frame shares the
// stack's backing array; nothing is copied.
func Extract(stack FrameStack, index int) (RawFrame, error) {
	if err := stack.Validate(); err != nil {
		return RawFrame{}, err
	}

	if index < 0 || index >= stack.Frames {
		return RawFrame{}, fmt.Errorf("%w: frame %d requested, stack has %d", ErrOutOfRange, index, stack.Frames)
	}

	size := stack.FrameSize()
	start := index * size

	return RawFrame{
		Rows:     stack.Rows,
		Cols:     stack.Cols,
		Channels: stack.Channels,
		Samples:  stack.Samples[start : start+size : start+size],
	}, nil
}

// Validate checks that the frame's dimensions describe its sample buffer.
func (f RawFrame) Validate() error {
	return FrameStack{
		Rows:     f.Rows,
		Cols:     f.Cols,
		Channels: f.Channels,
		Frames:   1,
		Samples:  f.Samples,
	}.Validate()
}
