package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/carbocation/dicomview/dicomsource"
	"github.com/carbocation/pfx"
)

// Manifest is one viewable DICOM. An empty Zip means Dicom is the path of a
// bare DICOM file rather than an entry inside a zip.
type Manifest struct {
	Index int    `json:"index"`
	Zip   string `json:"zip_file"`
	Dicom string `json:"dicom_file"`
}

// Paths resolves the entry against root, returning the zip path (empty for
// a bare DICOM) and the DICOM name or path.
func (m Manifest) Paths(root string) (zipPath, dicomName string) {
	if m.Zip == "" {
		return "", dicomsource.JoinPath(root, m.Dicom)
	}

	return dicomsource.JoinPath(root, m.Zip), m.Dicom
}

func ReadManifest(manifestPath string) ([]Manifest, error) {
	f, err := os.Open(manifestPath)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	out, err := parseManifest(f)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", manifestPath, err))
	}

	return out, nil
}

// parseManifest reads a tab-delimited manifest with a header row. Only the
// dicom_file column is required; zip_file may be missing or blank.
func parseManifest(r io.Reader) ([]Manifest, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		return nil, fmt.Errorf("manifest is empty")
	}

	zipCol, dicomCol := -1, -1
	for j, col := range recs[0] {
		if col == "zip_file" {
			zipCol = j
		} else if col == "dicom_file" {
			dicomCol = j
		}
	}
	if dicomCol < 0 {
		return nil, fmt.Errorf("manifest header has no dicom_file column")
	}

	output := make([]Manifest, 0, len(recs)-1)
	for i, cols := range recs[1:] {
		if dicomCol >= len(cols) || cols[dicomCol] == "" {
			return nil, fmt.Errorf("line %d has no dicom_file", i+2)
		}

		entry := Manifest{Index: len(output), Dicom: cols[dicomCol]}
		if zipCol >= 0 && zipCol < len(cols) {
			entry.Zip = cols[zipCol]
		}

		output = append(output, entry)
	}

	return output, nil
}
