package handlers

import (
	"net/http"

	"github.com/ofcrse/site/internal/httperr"
	"github.com/ofcrse/site/internal/httpserver/deps"
	"github.com/ofcrse/site/internal/shortlink"
)

// Music redirects to the table's music entry, 404 when the entry is absent.
func Music(d deps.Deps) httperr.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		return redirectTo(w, r, d, shortlink.MusicKey)
	}
}
