package dicomsource

import (
	"archive/zip"
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeBZip2
)

func (d DataType) String() string {
	switch d {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeBZip2:
		return "bzip2"
	}
	return "invalid"
}

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType matches the leading bytes of a stream against known
// compression signatures. Anything unrecognized, including a DICOM
// preamble, is DataTypeNoCompression.
func DetectDataType(head []byte) DataType {
Outer:
	for dt, sig := range byteCodeSigs {
		if len(head) < len(sig) {
			continue
		}
		for position := range sig {
			if head[position] != sig[position] {
				continue Outer
			}
		}
		return dt
	}

	return DataTypeNoCompression
}

// Decompress detects the compression of r and returns a reader of the
// decompressed bytes. Zip archives are not unwrapped here since they may
// hold many files; see WalkZipStream.
func Decompress(r io.Reader) (io.Reader, DataType, error) {
	br := bufio.NewReader(r)

	// A short stream is fine: it just cannot match a longer signature.
	head, err := br.Peek(6)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, DataTypeInvalid, pfx.Err(err)
	}

	dt := DetectDataType(head)
	switch dt {
	case DataTypeGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, dt, pfx.Err(err)
		}
		return gz, dt, nil
	case DataTypeXZ:
		reader, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, dt, pfx.Err(err)
		}
		return reader, dt, nil
	case DataTypeBZip2:
		return bzip2.NewReader(br), dt, nil
	}

	return br, dt, nil
}

// parseMaybeCompressed decodes a bare DICOM that may have been gzipped,
// xz'd or bzip2'd as a whole. Uncompressed input is parsed as a stream.
func parseMaybeCompressed(r io.Reader, nBytes int64) (*Dataset, error) {
	rdr, dt, err := Decompress(r)
	if err != nil {
		return nil, err
	}

	switch dt {
	case DataTypeNoCompression:
		return ParseDicomFromReader(rdr, nBytes)
	case DataTypeZip:
		return nil, pfx.Err(fmt.Errorf("input is a zip archive; the DICOM inside it must be named"))
	}

	dcm, err := ioutil.ReadAll(rdr)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("decompressing %s: %w", dt, err))
	}

	return ParseDicomFromBytes(dcm)
}

// WalkZipStream reads a zip archive front to back, without needing
// io.ReaderAt, and calls fn for each DICOM in it. Entries whose names start
// with "manifest" are skipped. A parse failure is handed to fn rather than
// stopping the walk; an error returned by fn stops it.
func WalkZipStream(r io.Reader, fn func(name string, ds *Dataset, err error) error) error {
	zr := zipstream.NewReader(r)

	for {
		hdr, err := zr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return pfx.Err(err)
		}

		if !isDicomEntry(hdr) {
			continue
		}

		dcm, err := ioutil.ReadAll(zr)
		if err != nil {
			return pfx.Err(fmt.Errorf("%s: %w", hdr.Name, err))
		}

		ds, err := ParseDicomFromBytes(dcm)
		if err := fn(hdr.Name, ds, err); err != nil {
			return err
		}
	}
}

// errStopWalk ends a WalkZipStream early without being an error.
var errStopWalk = fmt.Errorf("stop walking")

// LoadDatasetFromZipStream finds dicomName in a zip read front to back.
func LoadDatasetFromZipStream(r io.Reader, dicomName string) (*Dataset, error) {
	var out *Dataset
	var outErr error

	err := WalkZipStream(r, func(name string, ds *Dataset, err error) error {
		if name != dicomName {
			return nil
		}
		out, outErr = ds, err
		return errStopWalk
	})
	if err != nil && err != errStopWalk {
		return nil, err
	}
	if outErr != nil {
		return nil, fmt.Errorf("%s: %w", dicomName, outErr)
	}
	if out == nil {
		return nil, pfx.Err(fmt.Errorf("did not find the requested dicom %s", dicomName))
	}

	return out, nil
}

func isDicomEntry(hdr *zip.FileHeader) bool {
	if hdr.FileInfo().IsDir() {
		return false
	}
	return !strings.HasPrefix(hdr.Name, "manifest")
}
