package dicomsource

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

func TestParseFormat(t *testing.T) {
	for in, expected := range map[string]string{
		"":     FormatPNG,
		"png":  FormatPNG,
		".PNG": FormatPNG,
		"bmp":  FormatBMP,
	} {
		got, err := ParseFormat(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != expected {
			t.Fatalf("%q: got %q, expected %q", in, got, expected)
		}
	}

	if _, err := ParseFormat("tiff"); err == nil {
		t.Fatalf("expected an error for tiff")
	}
	if ContentType(FormatBMP) != "image/bmp" || ContentType(FormatPNG) != "image/png" {
		t.Fatalf("unexpected content types")
	}
}

func TestEncodeImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	img.Pix = []byte{0, 50, 100, 150, 200, 250}

	var buf bytes.Buffer
	if err := EncodeImage(&buf, img, FormatPNG); err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Fatalf("png bounds %v, expected %v", decoded.Bounds(), img.Bounds())
	}

	buf.Reset()
	if err := EncodeImage(&buf, img, FormatBMP); err != nil {
		t.Fatal(err)
	}
	decoded, err = bmp.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Fatalf("bmp bounds %v, expected %v", decoded.Bounds(), img.Bounds())
	}

	if err := EncodeImage(&buf, img, "jpeg2000"); err == nil {
		t.Fatalf("expected an error for an unknown format")
	}
}

func TestThumbnail(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 40, 20))

	if got := Thumbnail(img, 10).Bounds(); got.Dx() != 10 || got.Dy() != 5 {
		t.Fatalf("thumbnail bounds %v, expected 10x5", got)
	}
	if got := Thumbnail(img, 0); got != image.Image(img) {
		t.Fatalf("width 0 should return the input")
	}
	if got := Thumbnail(img, 80); got != image.Image(img) {
		t.Fatalf("upscaling should return the input")
	}
}
