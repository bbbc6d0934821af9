package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"runtime"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/carbocation/dicomview/compileinfo"
	"github.com/carbocation/dicomview/dicomsource"
	"github.com/carbocation/dicomview/logger"
	"github.com/carbocation/dicomview/pixelnorm"
	"github.com/rs/zerolog/log"
)

func main() {
	var inputPath, outputPath, manifest, format, wc, ww, tarName, logLevel string
	var frame, cineDelay int
	var allFrames, cine, label, gcs, logConsole, version bool
	flag.StringVar(&inputPath, "raw", "", "Path to the folder (local or gs://) containing the raw zip files or DICOMs")
	flag.StringVar(&outputPath, "out", "", "Path to the local folder where the extracted images will go")
	flag.StringVar(&manifest, "manifest", "", "Manifest file containing a dicom_file column and, optionally, a zip_file column.")
	flag.IntVar(&frame, "frame", 0, "0-based frame to convert")
	flag.BoolVar(&allFrames, "all-frames", false, "Convert every frame, one image each")
	flag.StringVar(&wc, "wc", "", "(Optional) Window center. Requires -ww.")
	flag.StringVar(&ww, "ww", "", "(Optional) Window width. Requires -wc.")
	flag.StringVar(&format, "format", dicomsource.FormatPNG, "Output format: png or bmp")
	flag.BoolVar(&cine, "cine", false, "Also write an animated GIF of all frames")
	flag.IntVar(&cineDelay, "cine-delay", 5, "Delay between GIF frames, in hundredths of a second")
	flag.BoolVar(&label, "label", false, "Caption each image with its frame number and window")
	flag.StringVar(&tarName, "targz", "", "(Optional) Write everything into this .tar.gz under -out instead of loose files")
	flag.BoolVar(&gcs, "gcs", false, "Create a Google Storage client, needed when -raw is a gs:// path")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flag.BoolVar(&logConsole, "log-console", true, "Human readable logs instead of JSON")
	flag.BoolVar(&version, "version", false, "Print build information and exit")

	flag.Parse()
	if version {
		fmt.Println(compileinfo.Get())
		return
	}
	if inputPath == "" || outputPath == "" || manifest == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	lg, err := logger.Setup(logLevel, logConsole, "dicom2png")
	if err != nil {
		log.Fatal().Err(err).Msg("configuring logger")
	}
	lg.Debug().Object("build", compileinfo.Get()).Msg("Starting dicom2png")

	opts := convertOptions{
		Frame:     frame,
		AllFrames: allFrames,
		Cine:      cine,
		CineDelay: cineDelay,
		Label:     label,
	}
	if opts.Window, err = parseWindowFlags(wc, ww); err != nil {
		lg.Fatal().Err(err).Msg("parsing window")
	}
	if opts.Format, err = dicomsource.ParseFormat(format); err != nil {
		lg.Fatal().Err(err).Msg("parsing format")
	}

	var sclient *storage.Client
	if gcs || strings.HasPrefix(inputPath, "gs://") {
		if sclient, err = storage.NewClient(context.Background()); err != nil {
			lg.Fatal().Err(err).Msg("creating storage client")
		}
	}

	f, err := os.Open(manifest)
	if err != nil {
		lg.Fatal().Err(err).Msg("opening manifest")
	}
	defer f.Close()

	jobs, err := readManifest(f)
	if err != nil {
		lg.Fatal().Err(err).Str("manifest", manifest).Msg("reading manifest")
	}

	var out sink = dirSink(outputPath)
	if tarName != "" {
		tw, closer, err := NewTarGzWriter(outputPath, tarName)
		if err != nil {
			lg.Fatal().Err(err).Msg("creating archive")
		}
		defer func() {
			if err := closer(); err != nil {
				lg.Error().Err(err).Msg("closing archive")
			}
		}()
		out = &tarSink{tw: tw}
	}

	concurrency := runtime.NumCPU()
	sem := make(chan bool, concurrency)

	var mu sync.Mutex
	failed := 0

	for _, entry := range jobs {
		sem <- true
		go func(entry job) {
			defer func() { <-sem }()

			zipPath, dicomName := entry.paths(inputPath)
			ds, err := dicomsource.Load(zipPath, dicomName, sclient)
			if err == nil {
				err = convertDataset(ds, entry.baseName(), opts, out)
			}
			if err != nil {
				lg.Warn().Err(err).Str("zip_file", entry.Zip).Str("dicom_file", entry.Dicom).Msg("Skipping file")
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(entry)
	}

	for i := 0; i < cap(sem); i++ {
		sem <- true
	}

	lg.Info().Int("files", len(jobs)).Int("failed", failed).Msg("Finished")
}

// parseWindowFlags accepts both -wc and -ww or neither.
func parseWindowFlags(wc, ww string) (*pixelnorm.Window, error) {
	if wc == "" && ww == "" {
		return nil, nil
	}
	if wc == "" || ww == "" {
		return nil, fmt.Errorf("-wc and -ww must be given together")
	}

	var w pixelnorm.Window
	if _, err := fmt.Sscan(wc, &w.Center); err != nil {
		return nil, fmt.Errorf("-wc %q: %w", wc, err)
	}
	if _, err := fmt.Sscan(ww, &w.Width); err != nil {
		return nil, fmt.Errorf("-ww %q: %w", ww, err)
	}
	if math.IsNaN(w.Center) || math.IsInf(w.Center, 0) || !(w.Width > 0) || math.IsInf(w.Width, 0) {
		return nil, fmt.Errorf("%w: -ww center %v width %v", pixelnorm.ErrInvalidWindow, w.Center, w.Width)
	}

	return &w, nil
}
