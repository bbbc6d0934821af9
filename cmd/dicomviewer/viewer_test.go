package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/gif"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/carbocation/dicomview/config"
	"github.com/carbocation/dicomview/dicomsource"
	"github.com/carbocation/dicomview/pixelnorm"
	"github.com/rs/zerolog"
)

func TestParseManifest(t *testing.T) {
	in := "sample_id\tdicom_file\tzip_file\n" +
		"1\ta.dcm\tone.zip\n" +
		"2\t/abs/b.dcm\t\n"

	entries, err := parseManifest(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, expected 2", len(entries))
	}
	if entries[0] != (Manifest{Index: 0, Zip: "one.zip", Dicom: "a.dcm"}) {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
	if entries[1] != (Manifest{Index: 1, Zip: "", Dicom: "/abs/b.dcm"}) {
		t.Fatalf("unexpected entry %+v", entries[1])
	}

	for _, bad := range []string{
		"",
		"zip_file\nx.zip\n",
		"dicom_file\tzip_file\n\tx.zip\n",
	} {
		if _, err := parseManifest(strings.NewReader(bad)); err == nil {
			t.Fatalf("%q: expected an error", bad)
		}
	}
}

func TestManifestPaths(t *testing.T) {
	for _, v := range []struct {
		Entry     Manifest
		Root      string
		ZipPath   string
		DicomName string
	}{
		{Manifest{Zip: "one.zip", Dicom: "a.dcm"}, "/data", "/data/one.zip", "a.dcm"},
		{Manifest{Dicom: "b.dcm"}, "/data", "", "/data/b.dcm"},
		{Manifest{Dicom: "/abs/b.dcm"}, "/data", "", "/abs/b.dcm"},
		{Manifest{Zip: "one.zip", Dicom: "a.dcm"}, "gs://bucket/raw/", "gs://bucket/raw/one.zip", "a.dcm"},
		{Manifest{Zip: "gs://other/one.zip", Dicom: "a.dcm"}, "/data", "gs://other/one.zip", "a.dcm"},
	} {
		zipPath, dicomName := v.Entry.Paths(v.Root)
		if zipPath != v.ZipPath || dicomName != v.DicomName {
			t.Fatalf("%+v under %s: got (%q, %q), expected (%q, %q)", v.Entry, v.Root, zipPath, dicomName, v.ZipPath, v.DicomName)
		}
	}
}

func TestParseWindowQuery(t *testing.T) {
	for _, v := range []struct {
		Query    string
		Expected *pixelnorm.Window
		Err      bool
	}{
		{"", nil, false},
		{"wc=40&ww=400", &pixelnorm.Window{Center: 40, Width: 400}, false},
		{"wc=-1024.5&ww=0.5", &pixelnorm.Window{Center: -1024.5, Width: 0.5}, false},
		{"wc=40", nil, true},
		{"ww=40", nil, true},
		{"wc=40&ww=0", nil, true},
		{"wc=40&ww=-3", nil, true},
		{"wc=abc&ww=3", nil, true},
		{"wc=1&ww=NaN", nil, true},
		{"wc=Inf&ww=3", nil, true},
	} {
		q, err := url.ParseQuery(v.Query)
		if err != nil {
			t.Fatal(err)
		}

		got, err := parseWindowQuery(q)
		if v.Err {
			if err == nil {
				t.Fatalf("%q: expected an error", v.Query)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", v.Query, err)
		}
		if (got == nil) != (v.Expected == nil) || (got != nil && *got != *v.Expected) {
			t.Fatalf("%q: got %+v, expected %+v", v.Query, got, v.Expected)
		}
	}

	q, _ := url.ParseQuery("wc=1&ww=0")
	if _, err := parseWindowQuery(q); !errors.Is(err, pixelnorm.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

// testGlobal serves a two-entry manifest. Entry 0 is a 2x2, two-frame
// grayscale dataset; entry 1 always fails to load.
func testGlobal() *Global {
	ds := &dicomsource.Dataset{
		Attributes: dicomsource.Attributes{Rows: 2, Cols: 2, SamplesPerPixel: 1, NumberOfFrames: 2},
		Metadata:   dicomsource.Metadata{Modality: "MR", Rows: "2"},
		Stack: pixelnorm.FrameStack{
			Rows:     2,
			Cols:     2,
			Channels: 1,
			Frames:   2,
			Samples:  []float64{0, 100, 200, 300, 5, 5, 5, 5},
		},
	}

	cfg := config.DefaultConfig()
	cfg.ManifestPath = "manifest.tsv"

	g := &Global{
		log:    zerolog.Nop(),
		config: cfg,
		pool:   newWorkerPool(2),
		manifest: []Manifest{
			{Index: 0, Dicom: "good.dcm"},
			{Index: 1, Dicom: "bad.dcm"},
		},
	}
	g.load = func(m Manifest) (*dicomsource.Dataset, error) {
		if m.Index == 0 {
			return ds, nil
		}
		return nil, fmt.Errorf("%s: cannot be read", m.Dicom)
	}

	return g
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

func TestIndexHandler(t *testing.T) {
	rec := get(t, router(testGlobal()), "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var entries []Manifest
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[1].Dicom != "bad.dcm" {
		t.Fatalf("unexpected manifest %+v", entries)
	}
}

func TestMetaHandler(t *testing.T) {
	rec := get(t, router(testGlobal()), "/meta/0")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var meta struct {
		Metadata []string
		Frames   int
		Polarity string
	}
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatal(err)
	}
	if meta.Frames != 2 || meta.Polarity != "NORMAL" || len(meta.Metadata) != 2 || meta.Metadata[0] != "Modality: MR" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestFrameHandler(t *testing.T) {
	rec := get(t, router(testGlobal()), "/frame/0?wc=150&ww=200")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q", ct)
	}
	if s := rec.Header().Get("X-Window-Strategy"); s != pixelnorm.StrategyExplicit.String() {
		t.Fatalf("strategy %q", s)
	}

	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}

	expected := []uint32{0, 64, 191, 255}
	for i, want := range expected {
		r, _, _, _ := img.At(i%2, i/2).RGBA()
		if r>>8 != want {
			t.Fatalf("pixel %d: got %d, expected %d", i, r>>8, want)
		}
	}
}

func TestFrameHandlerFormats(t *testing.T) {
	h := router(testGlobal())

	rec := get(t, h, "/frame/0?frame=1&format=bmp")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/bmp" {
		t.Fatalf("status %d, content type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if s := rec.Header().Get("X-Window-Strategy"); s != pixelnorm.StrategyPercentile.String() {
		t.Fatalf("strategy %q", s)
	}
}

func TestFrameHandlerErrors(t *testing.T) {
	h := router(testGlobal())

	for target, code := range map[string]int{
		"/frame/0?frame=2":        http.StatusBadRequest,
		"/frame/0?frame=-1":       http.StatusBadRequest,
		"/frame/0?frame=x":        http.StatusBadRequest,
		"/frame/0?wc=10":          http.StatusBadRequest,
		"/frame/0?wc=10&ww=0":     http.StatusBadRequest,
		"/frame/0?format=tiff":    http.StatusBadRequest,
		"/frame/0?thumb=big":      http.StatusBadRequest,
		"/frame/0?label=maybe":    http.StatusBadRequest,
		"/frame/7":                http.StatusBadRequest,
		"/frame/x":                http.StatusBadRequest,
		"/frame/1":                http.StatusInternalServerError,
		"/meta/1":                 http.StatusInternalServerError,
		"/cine/0?delay=-2":        http.StatusBadRequest,
		"/cine/0?wc=1&ww=-1":      http.StatusBadRequest,
		"/cine/1":                 http.StatusInternalServerError,
		"/nonexistent/0?frame=0":  http.StatusNotFound,
	} {
		rec := get(t, h, target)
		if rec.Code != code {
			t.Fatalf("%s: status %d, expected %d (%s)", target, rec.Code, code, rec.Body.String())
		}
	}
}

func TestFrameHandlerLabelAndThumb(t *testing.T) {
	rec := get(t, router(testGlobal()), "/frame/0?label=true&thumb=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 1 {
		t.Fatalf("thumbnail is %v, expected 1 pixel wide", img.Bounds())
	}
}

func TestCineHandler(t *testing.T) {
	rec := get(t, router(testGlobal()), "/cine/0?delay=9")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	g, err := gif.DecodeAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Image) != 2 || g.Delay[0] != 9 {
		t.Fatalf("got %d frames with delay %v", len(g.Image), g.Delay)
	}
}

func TestGoroutinesHandler(t *testing.T) {
	rec := get(t, router(testGlobal()), "/goroutines")
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK || !strings.Contains(string(body), "goroutines are currently active") {
		t.Fatalf("status %d, body %q", rec.Code, body)
	}
}
