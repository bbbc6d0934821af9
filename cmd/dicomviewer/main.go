package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"cloud.google.com/go/storage"
	"github.com/carbocation/dicomview/compileinfo"
	"github.com/carbocation/dicomview/config"
	"github.com/carbocation/dicomview/logger"
	"github.com/rs/zerolog/log"
)

var global *Global

func main() {
	errors := make(chan error, 1)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig,
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGUSR1,
	)

	defaults := config.DefaultConfig()

	configPath := flag.String("config", "", "(Optional) JSON or YAML config file. Flags given on the command line override it.")
	manifest := flag.String("manifest", "", "Tab-delimited manifest file which contains a dicom_file column and, optionally, a zip_file column.")
	dicomRoot := flag.String("dicom-path", "", "Root path under which all DICOM zip files sit. If empty, folder where manifest file resides. May be a Google Storage URL (gs://).")
	port := flag.Int("port", defaults.Port, "Port for HTTP server")
	workers := flag.Int("workers", defaults.Workers, "Maximum number of DICOMs decoded at once")
	logLevel := flag.String("log-level", defaults.LogLevel, "Log level: debug, info, warn or error")
	logConsole := flag.Bool("log-console", defaults.LogConsole, "Human readable logs instead of JSON")
	format := flag.String("format", defaults.DefaultFormat, "Default image format for /frame: png or bmp")
	cineDelay := flag.Int("cine-delay", defaults.CineDelay, "Default delay between GIF frames, in hundredths of a second")
	gcs := flag.Bool("gcs", false, "Create a Google Storage client even if -dicom-path is not a gs:// URL")
	version := flag.Bool("version", false, "Print build information and exit")
	flag.Parse()

	if *version {
		fmt.Println(compileinfo.Get())
		return
	}

	cfg := defaults
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "manifest":
			cfg.ManifestPath = *manifest
		case "dicom-path":
			cfg.DicomRoot = *dicomRoot
		case "port":
			cfg.Port = *port
		case "workers":
			cfg.Workers = *workers
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-console":
			cfg.LogConsole = *logConsole
		case "format":
			cfg.DefaultFormat = *format
		case "cine-delay":
			cfg.CineDelay = *cineDelay
		}
	})

	if cfg.ManifestPath == "" {
		flag.PrintDefaults()
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.DicomRoot == "" {
		cfg.DicomRoot = filepath.Dir(cfg.ManifestPath)
	}

	lg, err := logger.Setup(cfg.LogLevel, cfg.LogConsole, "dicomviewer")
	if err != nil {
		log.Fatal().Err(err).Msg("configuring logger")
	}
	lg.Info().Object("build", compileinfo.Get()).Msg("Starting dicomviewer")

	entries, err := ReadManifest(cfg.ManifestPath)
	if err != nil {
		lg.Fatal().Err(err).Msg("reading manifest")
	}

	var sclient *storage.Client
	if *gcs || strings.HasPrefix(cfg.DicomRoot, "gs://") {
		sclient, err = storage.NewClient(context.Background())
		if err != nil {
			lg.Fatal().Err(err).Msg("creating storage client")
		}
	}

	global = &Global{
		log:           lg,
		storageClient: sclient,
		config:        cfg,
		pool:          newWorkerPool(cfg.Workers),
		manifest:      entries,
	}
	global.load = global.loadFromSource

	global.log.Info().
		Int("entries", len(entries)).
		Str("dicom_root", cfg.DicomRoot).
		Int("workers", cfg.Workers).
		Msg("Launching dicomviewer")

	go func() {
		global.log.Info().Int("port", cfg.Port).Msg("Starting HTTP server")
		if err := http.ListenAndServe(fmt.Sprintf(`:%d`, cfg.Port), router(global)); err != nil {
			errors <- err
			sig <- syscall.SIGTERM
			return
		}
	}()

Outer:
	for {
		select {
		case sigl := <-sig:
			if sigl == syscall.SIGUSR1 {
				SigStatus()
				continue
			}

			// By default, exit
			global.log.Info().Str("signal", sigl.String()).Msg("Exit")

			break Outer

		case err := <-errors:
			if err == nil {
				global.log.Info().Msg("Finished")
				break Outer
			}

			// Return a status code indicating failure
			global.log.Error().Err(err).Msg("Exiting due to error")
			os.Exit(1)
		}
	}
}

func SigStatus() {
	global.log.Info().Int("goroutines", runtime.NumGoroutine()).Msg("status")
}
