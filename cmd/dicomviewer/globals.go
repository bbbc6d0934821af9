package main

import (
	"sync"

	"cloud.google.com/go/storage"
	"github.com/carbocation/dicomview/config"
	"github.com/carbocation/dicomview/dicomsource"
	"github.com/rs/zerolog"
)

type Global struct {
	log           zerolog.Logger
	storageClient *storage.Client
	config        config.Config
	pool          *workerPool

	// load decodes the DICOM behind a manifest entry. Handlers go through
	// it rather than dicomsource directly.
	load func(Manifest) (*dicomsource.Dataset, error)

	m        sync.RWMutex
	manifest []Manifest
}

func (g *Global) Manifest() []Manifest {
	g.m.RLock()
	defer g.m.RUnlock()

	return g.manifest
}

// loadFromSource reads the entry's DICOM from local disk or Google Storage.
func (g *Global) loadFromSource(entry Manifest) (*dicomsource.Dataset, error) {
	zipPath, dicomName := entry.Paths(g.config.DicomRoot)

	return dicomsource.Load(zipPath, dicomName, g.storageClient)
}
