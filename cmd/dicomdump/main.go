package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/dicomview/compileinfo"
	"github.com/carbocation/dicomview/dicomsource"
	"github.com/carbocation/dicomview/logger"
	"github.com/rs/zerolog/log"
)

var (
	BufferSize = 4096
	STDOUT     = bufio.NewWriterSize(os.Stdout, BufferSize)
)

// Dumps metadata, tags and pixel statistics.
// Emits to stdout
func main() {
	defer STDOUT.Flush()

	var path, dicomName, histPNG, logLevel string
	var opts dumpOptions
	var gcs, version bool

	flag.StringVar(&path, "path", "", "Path to a single raw .dcm file (optionally .gz, .xz or .bz2 compressed), to a .zip (with -dicom), to a folder with bulk .zip files, or - for a zip on stdin. May be a gs:// URL.")
	flag.StringVar(&dicomName, "dicom", "", "(Optional) Name of the one DICOM to dump from the zip given by -path.")
	flag.IntVar(&opts.Frame, "frame", 0, "0-based frame whose pixels are summarized")
	flag.IntVar(&opts.Bins, "bins", 25, "Number of histogram buckets")
	flag.BoolVar(&opts.Tags, "tags", true, "Print every tag, not just the summary metadata")
	flag.StringVar(&histPNG, "histpng", "", "(Optional) Write the histogram as a PNG chart to this file. Only for a single DICOM.")
	flag.BoolVar(&gcs, "gcs", false, "Create a Google Storage client, needed for gs:// paths")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flag.BoolVar(&version, "version", false, "Print build information and exit")
	flag.Parse()

	if version {
		fmt.Println(compileinfo.Get())
		return
	}

	if path == "" {
		flag.Usage()
		os.Exit(1)
	}

	lg, err := logger.Setup(logLevel, true, "dicomdump")
	if err != nil {
		log.Fatal().Err(err).Msg("configuring logger")
	}
	lg.Debug().Object("build", compileinfo.Get()).Msg("Starting dicomdump")

	var sclient *storage.Client
	if gcs || strings.HasPrefix(path, "gs://") {
		if sclient, err = storage.NewClient(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("creating storage client")
		}
	}

	// Zip archive streamed on stdin
	if path == "-" {
		if err := ProcessZipStream(STDOUT, os.Stdin, opts); err != nil {
			log.Fatal().Err(err).Msg("reading zip from stdin")
		}
		return
	}

	// Single DICOM, bare or inside a zip
	if isBareDicom(path) || dicomName != "" {
		zipPath := ""
		if dicomName == "" {
			dicomName = path
		} else {
			zipPath = path
		}

		ds, err := dicomsource.Load(zipPath, dicomName, sclient)
		if err != nil {
			log.Fatal().Err(err).Msg("loading DICOM")
		}

		hist, err := dumpDataset(STDOUT, ds, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("dumping DICOM")
		}

		if histPNG != "" {
			if err := writeHistogramPNG(histPNG, hist); err != nil {
				log.Fatal().Err(err).Msg("writing histogram chart")
			}
		}

		return
	}

	// Folder of zip files
	if err := IterateOverFolder(STDOUT, path, opts, sclient); err != nil {
		log.Fatal().Err(err).Msg("iterating over folder")
	}
}

func isBareDicom(path string) bool {
	for _, suffix := range []string{".dcm", ".dcm.gz", ".dcm.xz", ".dcm.bz2"} {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}
