package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"image"
	"image/gif"
	"io"
	"path/filepath"
	"strings"

	"github.com/carbocation/dicomview/dicomsource"
	"github.com/carbocation/dicomview/pixelnorm"
)

// job is one manifest row. An empty Zip means Dicom is a bare DICOM path.
type job struct {
	Zip   string
	Dicom string
}

func (j job) paths(root string) (zipPath, dicomName string) {
	if j.Zip == "" {
		return "", dicomsource.JoinPath(root, j.Dicom)
	}
	return dicomsource.JoinPath(root, j.Zip), j.Dicom
}

// baseName names the outputs after the DICOM, without any directories or
// .dcm extension.
func (j job) baseName() string {
	return strings.TrimSuffix(filepath.Base(j.Dicom), ".dcm")
}

func readManifest(r io.Reader) ([]job, error) {
	csvReader := csv.NewReader(r)
	csvReader.Comma = '\t'
	csvReader.FieldsPerRecord = -1
	entries, err := csvReader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("manifest is empty")
	}

	zipFileCol, dicomFileCol := -1, -1
	for j, col := range entries[0] {
		if col == "zip_file" {
			zipFileCol = j
		} else if col == "dicom_file" {
			dicomFileCol = j
		}
	}
	if dicomFileCol < 0 {
		return nil, fmt.Errorf("manifest header has no dicom_file column")
	}

	out := make([]job, 0, len(entries)-1)
	for i, row := range entries[1:] {
		if dicomFileCol >= len(row) || row[dicomFileCol] == "" {
			return nil, fmt.Errorf("line %d has no dicom_file", i+2)
		}

		j := job{Dicom: row[dicomFileCol]}
		if zipFileCol >= 0 && zipFileCol < len(row) {
			j.Zip = row[zipFileCol]
		}
		out = append(out, j)
	}

	return out, nil
}

type convertOptions struct {
	Frame     int
	AllFrames bool
	Window    *pixelnorm.Window
	Format    string
	Cine      bool
	CineDelay int
	Label     bool
}

// toImage converts a rendered frame, captioning it when asked.
func (o convertOptions) toImage(img pixelnorm.DisplayImage, frame, frames int) image.Image {
	if !o.Label {
		return img.Image()
	}
	return dicomsource.Label(img.Image(), dicomsource.FrameLabel(img, frame, frames))
}

// convertDataset renders the requested frame (or all of them) and, if
// asked, a cine GIF, handing every encoded file to out.
func convertDataset(ds *dicomsource.Dataset, base string, opts convertOptions, out sink) error {
	var rendered []pixelnorm.DisplayImage

	if opts.AllFrames || opts.Cine {
		all, err := dicomsource.RenderAllFrames(ds, opts.Window)
		if err != nil {
			return err
		}
		rendered = all
	}

	var names []string
	var images []image.Image
	switch {
	case opts.AllFrames:
		for i, img := range rendered {
			names = append(names, fmt.Sprintf("%s_%03d.%s", base, i, opts.Format))
			images = append(images, opts.toImage(img, i, len(rendered)))
		}
	default:
		img, err := dicomsource.RenderFrame(ds, dicomsource.RenderRequest{Frame: opts.Frame, Window: opts.Window})
		if err != nil {
			return err
		}
		names = append(names, base+"."+opts.Format)
		images = append(images, opts.toImage(img, opts.Frame, ds.FrameCount()))
	}

	for i, img := range images {
		var buf bytes.Buffer
		if err := dicomsource.EncodeImage(&buf, img, opts.Format); err != nil {
			return err
		}
		if err := out.Put(names[i], buf.Bytes()); err != nil {
			return err
		}
	}

	if !opts.Cine {
		return nil
	}

	frames := make([]image.Image, 0, len(rendered))
	for i, img := range rendered {
		frames = append(frames, opts.toImage(img, i, len(rendered)))
	}

	outGif, err := dicomsource.CineGIF(frames, opts.CineDelay)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, outGif); err != nil {
		return err
	}

	return out.Put(base+".gif", buf.Bytes())
}
