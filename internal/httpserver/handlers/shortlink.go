package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ofcrse/site/internal/httperr"
	"github.com/ofcrse/site/internal/httpserver/deps"
	"github.com/ofcrse/site/internal/metrics"
)

// ShortlinkHome sends visitors of the bare shortlink host to the main site.
func ShortlinkHome(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, d.SiteURL, http.StatusFound)
	}
}

// Shortlink resolves the path after the leading slash against the shortlink table.
func Shortlink(d deps.Deps) httperr.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		return redirectTo(w, r, d, chi.URLParam(r, "*"))
	}
}

func redirectTo(w http.ResponseWriter, r *http.Request, d deps.Deps, key string) error {
	dest, ok := d.Shortlinks.Lookup(key)
	metrics.ShortlinkLookup(ok)
	if !ok {
		return httperr.ErrNotFound
	}
	http.Redirect(w, r, dest, http.StatusFound)
	return nil
}
