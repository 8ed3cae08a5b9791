package handlers

import (
	"net/http"

	"github.com/ofcrse/site/internal/httpserver/deps"
)

// CrossSite permanently moves any path and query to the canonical site.
func CrossSite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, d.SiteURL+r.URL.RequestURI(), http.StatusMovedPermanently)
	}
}
