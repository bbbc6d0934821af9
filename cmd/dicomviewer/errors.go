package main

import (
	"encoding/json"
	"net/http"
)

// HTTPError writes err as JSON with the given status code, defaulting to
// 500.
func HTTPError(h *handler, w http.ResponseWriter, r *http.Request, err error, code ...int) {
	usedCode := http.StatusInternalServerError
	if len(code) > 0 {
		usedCode = code[0]
	}

	h.log.Warn().
		Str("host", r.Host).
		Str("path", r.URL.Path).
		Int("status", usedCode).
		Err(err).
		Msg("request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(usedCode)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(struct {
		StatusCode     int
		StatusCodeText string
		Error          string
	}{
		StatusCode:     usedCode,
		StatusCodeText: http.StatusText(usedCode),
		Error:          err.Error(),
	})
}

func renderJSON(h *handler, w http.ResponseWriter, r *http.Request, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("encoding JSON response")
	}
}
