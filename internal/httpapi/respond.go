package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/park285/chesswatch/internal/dashboard"
	"github.com/park285/chesswatch/pkg/watchdto"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writePNG(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(b)
}

// fail maps dashboard errors onto status codes. Anything unclassified is
// treated as an upstream failure.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil && errors.Is(err, context.Canceled) {
		return
	}
	status, msg := a.classify(err)
	log := a.log.With(zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	if status >= http.StatusInternalServerError {
		log.Warn("request_failed")
	} else {
		log.Debug("request_rejected")
	}
	writeJSON(w, status, watchdto.ErrorBody{Error: msg})
}

func (a *api) classify(err error) (int, string) {
	switch {
	case errors.Is(err, dashboard.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, dashboard.ErrInvalidArgs):
		return http.StatusBadRequest, a.catalog.Text("errors.badRequest", map[string]string{"Reason": err.Error()})
	default:
		return http.StatusBadGateway, a.catalog.Text("errors.upstream", nil)
	}
}
