package dicomsource

import (
	"fmt"
	"image"

	"github.com/carbocation/dicomview/pixelnorm"
	"github.com/fogleman/gg"
)

// Label writes text on top of an image, white over a black copy offset by
// one pixel, in the built-in 7x13 face.
func Label(img image.Image, text string) image.Image {
	ctx := gg.NewContextForImage(img)

	ctx.SetRGB(0, 0, 0)
	ctx.DrawString(text, 3, 13)

	ctx.SetRGB(1, 1, 1)
	ctx.DrawString(text, 2, 12)

	return ctx.Image()
}

// FrameLabel describes how a frame was rendered, e.g.
// "2/30 explicit c=40 w=400".
func FrameLabel(img pixelnorm.DisplayImage, frame, frames int) string {
	out := fmt.Sprintf("%d/%d %s", frame+1, frames, img.Strategy)
	if img.Strategy == pixelnorm.StrategyExplicit || img.Strategy == pixelnorm.StrategyPercentile {
		out += fmt.Sprintf(" c=%.6g w=%.6g", img.Window.Center, img.Window.Width)
	}
	return out
}
