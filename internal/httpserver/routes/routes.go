// Package routes builds one chi router per host target.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ofcrse/site/internal/httpserver/deps"
	"github.com/ofcrse/site/internal/httpserver/handlers"
	"github.com/ofcrse/site/internal/httpserver/hostrouter"
	"github.com/ofcrse/site/internal/httpserver/mw"
)

func newRouter(d deps.Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.GetHead)
	r.NotFound(d.Errors.NotFound)
	return r
}

// Health serves the liveness probe only.
func Health(d deps.Deps) http.Handler {
	r := newRouter(d)
	r.HandleFunc("/healthz", handlers.Healthz(d))
	return r
}

func Shortlinks(d deps.Deps) http.Handler {
	r := newRouter(d)
	r.Get("/", handlers.ShortlinkHome(d))
	r.Get("/*", d.Errors.Handle(handlers.Shortlink(d)))
	return r
}

func Music(d deps.Deps) http.Handler {
	r := newRouter(d)
	r.Get("/", d.Errors.Handle(handlers.Music(d)))
	return r
}

func CrossSite(d deps.Deps) http.Handler {
	r := newRouter(d)
	r.HandleFunc("/*", handlers.CrossSite(d))
	return r
}

// Guarded answers unexpected subdomains with the 404 document.
func Guarded(d deps.Deps) http.Handler {
	return http.HandlerFunc(d.Errors.NotFound)
}

// Primary serves static content, except below the analytics prefix which is
// proxied (rate limited per client when configured).
func Primary(d deps.Deps) http.Handler {
	r := newRouter(d)

	count := handlers.CountProxy(d)
	limited := r.With(mw.RateLimit(d.RateLimit))
	limited.HandleFunc(d.CountPrefix, count)
	limited.HandleFunc(d.CountPrefix+"/*", count)

	r.HandleFunc("/*", d.Errors.Handle(handlers.Static(d)))
	return r
}

// All returns the handler for every host target.
func All(d deps.Deps) hostrouter.Handlers {
	return hostrouter.Handlers{
		hostrouter.Primary:     Primary(d),
		hostrouter.HealthCheck: Health(d),
		hostrouter.Shortlinks:  Shortlinks(d),
		hostrouter.Music:       Music(d),
		hostrouter.CrossSite:   CrossSite(d),
		hostrouter.Guarded:     Guarded(d),
	}
}
