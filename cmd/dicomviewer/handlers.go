package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"math"
	"net/http"
	"net/url"
	"runtime"
	"strconv"

	"github.com/carbocation/dicomview/dicomsource"
	"github.com/carbocation/dicomview/pixelnorm"
	"github.com/gorilla/mux"
)

type handler struct {
	*Global
}

func (h *handler) Index(w http.ResponseWriter, r *http.Request) {
	renderJSON(h, w, r, h.Global.Manifest())
}

func (h *handler) Goroutines(w http.ResponseWriter, r *http.Request) {
	goroutines := fmt.Sprintf("%d goroutines are currently active\n", runtime.NumGoroutine())

	w.Write([]byte(goroutines))
}

type metaResponse struct {
	Manifest
	Metadata         []string
	Frames           int
	DeclaredChannels int
	Polarity         string
	DefaultWindow    *pixelnorm.Window
}

func (h *handler) Meta(w http.ResponseWriter, r *http.Request) {
	entry, err := h.manifestEntry(r)
	if err != nil {
		HTTPError(h, w, r, err, http.StatusBadRequest)
		return
	}

	var ds *dicomsource.Dataset
	if err := h.pool.Do(r.Context(), func() (err error) {
		ds, err = h.load(entry)
		return err
	}); err != nil {
		HTTPError(h, w, r, err)
		return
	}

	output := metaResponse{
		Manifest:         entry,
		Metadata:         ds.Metadata.Lines(),
		Frames:           ds.FrameCount(),
		DeclaredChannels: ds.DeclaredChannels(),
		Polarity:         ds.Attributes.Polarity().String(),
	}
	if dw, ok := ds.Attributes.DefaultWindow(); ok {
		output.DefaultWindow = &dw
	}

	renderJSON(h, w, r, output)
}

func (h *handler) Frame(w http.ResponseWriter, r *http.Request) {
	entry, err := h.manifestEntry(r)
	if err != nil {
		HTTPError(h, w, r, err, http.StatusBadRequest)
		return
	}

	q := r.URL.Query()

	req := dicomsource.RenderRequest{}
	if req.Frame, err = intQuery(q, "frame", 0); err != nil {
		HTTPError(h, w, r, err, http.StatusBadRequest)
		return
	}
	if req.Window, err = parseWindowQuery(q); err != nil {
		HTTPError(h, w, r, err, http.StatusBadRequest)
		return
	}
	thumb, err := intQuery(q, "thumb", 0)
	if err != nil {
		HTTPError(h, w, r, err, http.StatusBadRequest)
		return
	}
	label := false
	if l := q.Get("label"); l != "" {
		if label, err = strconv.ParseBool(l); err != nil {
			HTTPError(h, w, r, fmt.Errorf("label %q is not a boolean", l), http.StatusBadRequest)
			return
		}
	}
	format := h.config.DefaultFormat
	if f := q.Get("format"); f != "" {
		format = f
	}
	if format, err = dicomsource.ParseFormat(format); err != nil {
		HTTPError(h, w, r, err, http.StatusBadRequest)
		return
	}

	var (
		loadErr error
		img     pixelnorm.DisplayImage
		buf     bytes.Buffer
	)
	err = h.pool.Do(r.Context(), func() error {
		ds, err := h.load(entry)
		if err != nil {
			loadErr = err
			return err
		}

		if img, err = dicomsource.RenderFrame(ds, req); err != nil {
			return err
		}

		out := img.Image()
		if label {
			out = dicomsource.Label(out, dicomsource.FrameLabel(img, req.Frame, ds.FrameCount()))
		}

		return dicomsource.EncodeImage(&buf, dicomsource.Thumbnail(out, thumb), format)
	})
	if err != nil {
		HTTPError(h, w, r, err, renderErrorCode(err, loadErr))
		return
	}

	w.Header().Set("Content-Type", dicomsource.ContentType(format))
	w.Header().Set("X-Window-Strategy", img.Strategy.String())
	if img.Strategy == pixelnorm.StrategyExplicit || img.Strategy == pixelnorm.StrategyPercentile {
		w.Header().Set("X-Window-Center", strconv.FormatFloat(img.Window.Center, 'g', -1, 64))
		w.Header().Set("X-Window-Width", strconv.FormatFloat(img.Window.Width, 'g', -1, 64))
	}
	w.Write(buf.Bytes())
}

func (h *handler) Cine(w http.ResponseWriter, r *http.Request) {
	entry, err := h.manifestEntry(r)
	if err != nil {
		HTTPError(h, w, r, err, http.StatusBadRequest)
		return
	}

	q := r.URL.Query()

	window, err := parseWindowQuery(q)
	if err != nil {
		HTTPError(h, w, r, err, http.StatusBadRequest)
		return
	}
	delay, err := intQuery(q, "delay", h.config.CineDelay)
	if err != nil || delay < 0 {
		HTTPError(h, w, r, fmt.Errorf("delay must be a non-negative integer, got %q", q.Get("delay")), http.StatusBadRequest)
		return
	}

	var (
		loadErr error
		buf     bytes.Buffer
	)
	err = h.pool.Do(r.Context(), func() error {
		ds, err := h.load(entry)
		if err != nil {
			loadErr = err
			return err
		}

		rendered, err := dicomsource.RenderAllFrames(ds, window)
		if err != nil {
			return err
		}

		frames := make([]image.Image, 0, len(rendered))
		for _, v := range rendered {
			frames = append(frames, v.Image())
		}

		outGif, err := dicomsource.CineGIF(frames, delay)
		if err != nil {
			return err
		}

		return gif.EncodeAll(&buf, outGif)
	})
	if err != nil {
		HTTPError(h, w, r, err, renderErrorCode(err, loadErr))
		return
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Write(buf.Bytes())
}

func (h *handler) manifestEntry(r *http.Request) (Manifest, error) {
	manifestIdx := mux.Vars(r)["manifest_index"]
	manifestIndex, err := strconv.Atoi(manifestIdx)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest_index %q is not an integer", manifestIdx)
	}

	manifest := h.Global.Manifest()
	if manifestIndex < 0 || manifestIndex >= len(manifest) {
		return Manifest{}, fmt.Errorf("manifest_index was %d, out of range of the %d manifest entries", manifestIndex, len(manifest))
	}

	return manifest[manifestIndex], nil
}

// renderErrorCode is 400 for requests that can never succeed (a frame that
// does not exist, an unusable window) and 500 for everything else.
func renderErrorCode(err, loadErr error) int {
	if loadErr != nil {
		return http.StatusInternalServerError
	}
	if errors.Is(err, pixelnorm.ErrOutOfRange) || errors.Is(err, pixelnorm.ErrInvalidWindow) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// parseWindowQuery reads the wc and ww query parameters. Both or neither
// must be given; neither means the dataset chooses.
func parseWindowQuery(q url.Values) (*pixelnorm.Window, error) {
	wc, ww := q.Get("wc"), q.Get("ww")
	if wc == "" && ww == "" {
		return nil, nil
	}
	if wc == "" || ww == "" {
		return nil, fmt.Errorf("wc and ww must be given together")
	}

	center, err := strconv.ParseFloat(wc, 64)
	if err != nil || math.IsNaN(center) || math.IsInf(center, 0) {
		return nil, fmt.Errorf("wc %q is not a finite number", wc)
	}
	width, err := strconv.ParseFloat(ww, 64)
	if err != nil || math.IsNaN(width) || math.IsInf(width, 0) {
		return nil, fmt.Errorf("ww %q is not a finite number", ww)
	}
	if width <= 0 {
		return nil, fmt.Errorf("%w: ww must be positive, got %v", pixelnorm.ErrInvalidWindow, width)
	}

	return &pixelnorm.Window{Center: center, Width: width}, nil
}

func intQuery(q url.Values, key string, fallback int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer", key, v)
	}

	return out, nil
}
