package pixelnorm

import (
	"image"
)

// DisplayImage is the pipeline's output: Rows*Cols*Channels bytes, row
// major, no padding.
type DisplayImage struct {
	Rows     int
	Cols     int
	Channels int
	Pix      []byte

	// Strategy is the branch that produced Pix.
	Strategy Strategy

	// Window is the linear window that was applied. It is the zero Window
	// for the color and VOI strategies.
	Window Window
}

// Stride is the number of bytes per row.
func (d DisplayImage) Stride() int {
	return d.Cols * d.Channels
}

// Image exposes the buffer as a standard library image so it can be handed
// to any image encoder. Grayscale buffers are wrapped without copying; color
// buffers are expanded to opaque RGBA.
func (d DisplayImage) Image() image.Image {
	rect := image.Rect(0, 0, d.Cols, d.Rows)

	if d.Channels == 1 {
		return &image.Gray{Pix: d.Pix, Stride: d.Stride(), Rect: rect}
	}

	img := image.NewRGBA(rect)
	for i, j := 0, 0; i+2 < len(d.Pix); i, j = i+3, j+4 {
		img.Pix[j] = d.Pix[i]
		img.Pix[j+1] = d.Pix[i+1]
		img.Pix[j+2] = d.Pix[i+2]
		img.Pix[j+3] = 0xff
	}

	return img
}
