package handlers

import (
	"net/http"

	"github.com/ofcrse/site/internal/httpserver/deps"
	"github.com/ofcrse/site/internal/logger"
)

// Healthz answers the platform liveness probe. It touches nothing but the response.
func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := w.Write([]byte("ok")); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}
