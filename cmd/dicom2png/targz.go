package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
)

// sink receives finished files.
type sink interface {
	Put(filename string, body []byte) error
}

// dirSink writes each file into a local folder.
type dirSink string

func (d dirSink) Put(filename string, body []byte) error {
	return os.WriteFile(filepath.Join(string(d), filename), body, 0644)
}

// tarSink appends each file to a tar stream. Put is safe for concurrent
// use.
type tarSink struct {
	mu sync.Mutex
	tw *tar.Writer
}

func (t *tarSink) Put(filename string, body []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return addFileToArchive(t.tw, body, filename)
}

// NewTarGzWriter provides a closer which will sequentially close the tar
// writer, the gzip writer, and finally the underlying file writer in correct
// order.
func NewTarGzWriter(filePath, fileName string) (tw *tar.Writer, Close func() error, err error) {
	outFile, err := os.Create(filepath.Join(filePath, fileName))
	if err != nil {
		return nil, func() error { return nil }, err
	}
	gw := gzip.NewWriter(outFile)
	tw = tar.NewWriter(gw)

	closer := func() error {
		var err error

		if err = tw.Flush(); err != nil {
			return err
		}

		if err = tw.Close(); err != nil {
			return err
		}

		if err = gw.Close(); err != nil {
			return err
		}

		if err = outFile.Close(); err != nil {
			return err
		}

		return nil
	}

	return tw, closer, nil
}

// addFileToArchive writes one already-encoded file. The tar header needs the
// size up front, which is why callers hand over complete buffers.
func addFileToArchive(tw *tar.Writer, body []byte, filename string) error {
	hdr := &tar.Header{
		Name: path.Base(filename),
		Mode: int64(0644),
		Size: int64(len(body)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	if _, err := tw.Write(body); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}

	return nil
}
