package dicomsource

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"runtime"

	"github.com/carbocation/go-quantize/quantize"
)

type orderedPaletted struct {
	key   int
	image *image.Paletted
}

// CineGIF creates an animated gif from an ordered slice of frames. The delay
// between frames is in hundredths of a second. The palette is built from
// *all* frames and shared across the output.
func CineGIF(frames []image.Image, delay int) (*gif.GIF, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to animate")
	}

	bounds := frames[0].Bounds()
	for k, img := range frames {
		if img.Bounds() != bounds {
			return nil, fmt.Errorf("frame %d has bounds %v, frame 0 has %v", k, img.Bounds(), bounds)
		}
	}

	quantizer := quantize.MedianCutQuantizer{
		Aggregation:    quantize.Mean,
		Weighting:      nil,
		AddTransparent: false,
	}

	pal := quantizer.QuantizeMultiple(make([]color.Color, 0, 256), frames)

	palettedImages := make(chan orderedPaletted)
	semaphore := make(chan struct{}, runtime.NumCPU())

	go func() {
		for k, img := range frames {
			semaphore <- struct{}{}

			go func(k int, img image.Image) {
				defer func() { <-semaphore }()

				palettedImage := image.NewPaletted(img.Bounds(), pal)
				draw.Draw(palettedImage, img.Bounds(), img, image.Point{}, draw.Over)

				palettedImages <- orderedPaletted{
					key:   k,
					image: palettedImage,
				}
			}(k, img)
		}
	}()

	// Collect in frame order
	sorted := make([]*image.Paletted, len(frames))
	for range frames {
		p := <-palettedImages
		sorted[p.key] = p.image
	}

	outGif := &gif.GIF{}
	for _, p := range sorted {
		outGif.Image = append(outGif.Image, p)
		outGif.Delay = append(outGif.Delay, delay)
	}

	return outGif, nil
}
