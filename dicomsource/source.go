package dicomsource

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// ReaderAtCloser is what a DICOM or zip source must provide.
type ReaderAtCloser interface {
	io.Reader
	io.ReaderAt
	io.Closer
}

// MaybeOpenFromGoogleStorage opens path, which is either a local file or a
// gs://bucket/object URL. client may be nil for local paths.
func MaybeOpenFromGoogleStorage(path string, client *storage.Client) (ReaderAtCloser, int64, error) {
	if strings.HasPrefix(path, "gs://") {
		if client == nil {
			return nil, 0, pfx.Err(fmt.Errorf("%s: no storage client for a gs:// path", path))
		}

		// Detect the bucket and the path to the actual file
		pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
		if len(pathParts) != 2 {
			return nil, 0, pfx.Err(fmt.Errorf("tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts))
		}

		handle := client.Bucket(pathParts[0]).Object(pathParts[1])

		wrappedHandle := &GSReaderAtCloser{
			ObjectHandle: handle,
			Context:      context.Background(),
		}

		// Make a hard call to get the filesize
		attrs, err := wrappedHandle.ObjectHandle.Attrs(wrappedHandle.Context)
		if err != nil {
			return nil, 0, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}

		return wrappedHandle, attrs.Size, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, pfx.Err(err)
	}
	fstat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, pfx.Err(err)
	}

	return f, fstat.Size(), nil
}

// GSReaderAtCloser decorates a Google Storage object handle with ReadAt.
type GSReaderAtCloser struct {
	*storage.ObjectHandle
	Context context.Context
	Reader  *storage.Reader
}

func (o *GSReaderAtCloser) Read(p []byte) (n int, err error) {
	if o.Reader == nil {
		o.Reader, err = o.NewReader(o.Context)
		if err != nil {
			return 0, err
		}
	}

	return o.Reader.Read(p)
}

// ReadAt satisfies io.ReaderAt. Each call is its own ranged request for
// exactly len(p) bytes.
func (o *GSReaderAtCloser) ReadAt(p []byte, offset int64) (n int, err error) {
	rdr, err := o.NewRangeReader(o.Context, offset, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rdr.Close()

	return io.ReadFull(rdr, p)
}

// Close releases the sequential reader, if one was opened.
func (o *GSReaderAtCloser) Close() error {
	if o.Reader == nil {
		return nil
	}
	return o.Reader.Close()
}

// LoadDataset decodes a bare DICOM file, local or in Google Storage. The
// file may be gzip, xz or bzip2 compressed as a whole.
func LoadDataset(path string, client *storage.Client) (*Dataset, error) {
	f, nBytes, err := MaybeOpenFromGoogleStorage(path, client)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := parseMaybeCompressed(f, nBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ds, nil
}

// LoadDatasetFromZip decodes the DICOM named dicomName inside the zip at
// zipPath, local or in Google Storage.
func LoadDatasetFromZip(zipPath, dicomName string, client *storage.Client) (*Dataset, error) {
	f, nBytes, err := MaybeOpenFromGoogleStorage(zipPath, client)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rc, err := zip.NewReader(f, nBytes)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %v", zipPath, err))
	}

	return LoadDatasetFromZipReader(rc, dicomName)
}

// LoadDatasetFromZipReader finds dicomName among the zip's entries and
// decodes it. Only the matching entry is decompressed.
func LoadDatasetFromZipReader(rc *zip.Reader, dicomName string) (*Dataset, error) {
	for _, v := range rc.File {
		if v.Name != dicomName {
			continue
		}

		dicomReader, err := v.Open()
		if err != nil {
			return nil, pfx.Err(err)
		}
		defer dicomReader.Close()

		ds, err := ParseDicomFromReader(dicomReader, int64(v.UncompressedSize64))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", dicomName, err)
		}

		return ds, nil
	}

	return nil, pfx.Err(fmt.Errorf("did not find the requested dicom %s", dicomName))
}

// Load dispatches on whether a zip is involved: an empty zipPath means
// dicomName is itself the path of a bare DICOM.
func Load(zipPath, dicomName string, client *storage.Client) (*Dataset, error) {
	if zipPath == "" {
		return LoadDataset(dicomName, client)
	}

	return LoadDatasetFromZip(zipPath, dicomName, client)
}

// JoinPath is filepath.Join, except that gs:// roots keep their double
// slash and treat name as relative to the bucket prefix. Under a local
// root, absolute names are returned as is. gs:// names always are.
func JoinPath(root, name string) string {
	if root == "" || strings.HasPrefix(name, "gs://") {
		return name
	}

	if strings.HasPrefix(root, "gs://") {
		return strings.TrimSuffix(root, "/") + "/" + strings.TrimPrefix(name, "/")
	}

	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(root, name)
}
