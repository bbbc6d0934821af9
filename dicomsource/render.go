package dicomsource

import (
	"github.com/carbocation/dicomview/pixelnorm"
)

// RenderRequest is everything a viewer may vary between two renderings of
// the same dataset. A nil Window lets the dataset's VOI transform (or the
// percentile fallback) choose the contrast.
type RenderRequest struct {
	Frame  int
	Window *pixelnorm.Window
}

// RenderFrame extracts the requested frame and normalizes it with the
// dataset's calibration, polarity and VOI transform.
func RenderFrame(ds *Dataset, req RenderRequest) (pixelnorm.DisplayImage, error) {
	frame, err := pixelnorm.Extract(ds.Stack, req.Frame)
	if err != nil {
		return pixelnorm.DisplayImage{}, err
	}

	return pixelnorm.Normalize(frame, ds.DeclaredChannels(), ds.Attributes.Polarity(), ds.options(req.Window)...)
}

// RenderAllFrames renders every frame with the same window, in order.
func RenderAllFrames(ds *Dataset, window *pixelnorm.Window) ([]pixelnorm.DisplayImage, error) {
	out := make([]pixelnorm.DisplayImage, 0, ds.Stack.Frames)
	for i := 0; i < ds.Stack.Frames; i++ {
		img, err := RenderFrame(ds, RenderRequest{Frame: i, Window: window})
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}

	return out, nil
}

// DeclaredChannels is the sample count the dataset claims per pixel. A
// color claim on single-channel data is honored by broadcasting.
func (ds *Dataset) DeclaredChannels() int {
	if ds.Attributes.SamplesPerPixel == 3 || ds.Stack.Channels == 3 {
		return 3
	}
	return 1
}

// FrameCount is the number of frames actually decoded.
func (ds *Dataset) FrameCount() int {
	return ds.Stack.Frames
}

func (ds *Dataset) options(window *pixelnorm.Window) []pixelnorm.Option {
	opts := []pixelnorm.Option{
		pixelnorm.WithCalibration(ds.Attributes.Calibration()),
		pixelnorm.WithVOI(ds.Attributes.VOICurve()),
	}
	if window != nil {
		opts = append(opts, pixelnorm.WithWindow(*window))
	}

	return opts
}
