package main

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/dicomview/dicomsource"
	"github.com/carbocation/dicomview/pixelnorm"
	"github.com/carbocation/pfx"
	"github.com/rs/zerolog/log"
)

type dumpOptions struct {
	Frame int
	Bins  int
	Tags  bool
}

func IterateOverFolder(w io.Writer, path string, opts dumpOptions, client *storage.Client) error {
	files, err := dicomsource.ListFiles(path, ".zip", client)
	if err != nil {
		return pfx.Err(err)
	}

	for _, file := range files {
		if err := ProcessZip(w, file, opts, client); err != nil {
			log.Warn().Err(err).Str("zip_file", file).Msg("Skipping zip")
		}
	}

	return nil
}

func ProcessZip(w io.Writer, zipPath string, opts dumpOptions, client *storage.Client) error {
	fmt.Fprintln(w, strings.Repeat("=", 30))
	fmt.Fprintln(w, zipPath)
	fmt.Fprintln(w, strings.Repeat("=", 30))

	f, nBytes, err := dicomsource.MaybeOpenFromGoogleStorage(zipPath, client)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	rc, err := zip.NewReader(f, nBytes)
	if err != nil {
		return pfx.Err(err)
	}

	for _, v := range rc.File {
		// Looking only at the dicoms
		if strings.HasPrefix(v.Name, "manifest") {
			continue
		}

		fmt.Fprintln(w, strings.Repeat("-", 30))
		fmt.Fprintln(w, v.Name)
		fmt.Fprintln(w, strings.Repeat("-", 30))

		ds, err := dicomsource.LoadDatasetFromZipReader(rc, v.Name)
		if err != nil {
			log.Warn().Err(err).Str("dicom_file", v.Name).Msg("Ignoring error and continuing")
			continue
		}

		if _, err := dumpDataset(w, ds, opts); err != nil {
			log.Warn().Err(err).Str("dicom_file", v.Name).Msg("Ignoring error and continuing")
		}
	}

	return nil
}

// ProcessZipStream dumps every DICOM of a zip read front to back.
func ProcessZipStream(w io.Writer, r io.Reader, opts dumpOptions) error {
	return dicomsource.WalkZipStream(r, func(name string, ds *dicomsource.Dataset, err error) error {
		fmt.Fprintln(w, strings.Repeat("-", 30))
		fmt.Fprintln(w, name)
		fmt.Fprintln(w, strings.Repeat("-", 30))

		if err == nil {
			_, err = dumpDataset(w, ds, opts)
		}
		if err != nil {
			log.Warn().Err(err).Str("dicom_file", name).Msg("Ignoring error and continuing")
		}

		return nil
	})
}

// dumpDataset writes the metadata, optionally every tag, and the
// distribution of one frame's calibrated values. The histogram is returned
// so it can also be charted.
func dumpDataset(w io.Writer, ds *dicomsource.Dataset, opts dumpOptions) (histogram.Histogram, error) {
	fmt.Fprintln(w, "# Metadata")
	for _, line := range ds.Metadata.Lines() {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "Polarity: %s\n", ds.Attributes.Polarity())
	fmt.Fprintf(w, "DecodedFrames: %d\n", ds.FrameCount())

	if opts.Tags {
		fmt.Fprintln(w, "# Tags")
		for _, t := range ds.Tags {
			fmt.Fprintln(w, t)
		}
	}

	frame, err := pixelnorm.Extract(ds.Stack, opts.Frame)
	if err != nil {
		return histogram.Histogram{}, err
	}

	cal := ds.Attributes.Calibration()
	summary, err := dicomsource.SummarizeFrame(frame, cal)
	if err != nil {
		return histogram.Histogram{}, err
	}

	fmt.Fprintf(w, "# Pixels (frame %d)\n", opts.Frame)
	fmt.Fprintf(w, "N: %d Min: %g Max: %g Mean: %g Median: %g StdDev: %g P01: %g P99: %g\n",
		summary.N, summary.Min, summary.Max, summary.Mean, summary.Median, summary.StdDev, summary.P01, summary.P99)

	if ss, err := dicomsource.SummarizeStack(ds.Stack, cal); err == nil {
		fmt.Fprintf(w, "# Stack (%d frames)\nN: %d Min: %g Max: %g Mean: %g StdDev: %g\n",
			ds.FrameCount(), ss.N, ss.Min, ss.Max, ss.Mean, ss.StdDev)
	}

	window := pixelnorm.PercentileWindow(dicomsource.CalibratedValues(frame, cal))
	fmt.Fprintf(w, "PercentileWindow: center %g width %g\n", window.Center, window.Width)
	if dw, ok := ds.Attributes.DefaultWindow(); ok {
		fmt.Fprintf(w, "DefaultWindow: center %g width %g\n", dw.Center, dw.Width)
	}

	bins := opts.Bins
	if bins < 1 {
		bins = 1
	}
	hist := histogram.Hist(bins, dicomsource.CalibratedValues(frame, cal))

	fmt.Fprintln(w, "# Histogram")
	if err := histogram.Fprint(w, hist, histogram.Linear(40)); err != nil {
		return hist, err
	}

	return hist, nil
}
