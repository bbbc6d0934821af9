package dicomsource

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
)

const (
	FormatPNG = "png"
	FormatBMP = "bmp"
)

// ParseFormat normalizes an output format name. The empty string means PNG.
func ParseFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimPrefix(format, ".")); f {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatBMP:
		return FormatBMP, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", format)
	}
}

// ContentType is the MIME type for a format returned by ParseFormat.
func ContentType(format string) string {
	if format == FormatBMP {
		return "image/bmp"
	}
	return "image/png"
}

// EncodeImage writes img to w in the given format.
func EncodeImage(w io.Writer, img image.Image, format string) error {
	f, err := ParseFormat(format)
	if err != nil {
		return err
	}

	if f == FormatBMP {
		return bmp.Encode(w, img)
	}

	return png.Encode(w, img)
}

// Thumbnail scales img to the given width, preserving aspect ratio. Widths
// <= 0 or at least as wide as the image return img unchanged.
func Thumbnail(img image.Image, width int) image.Image {
	if width <= 0 || width >= img.Bounds().Dx() {
		return img
	}

	return imaging.Resize(img, width, 0, imaging.Lanczos)
}
