package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ofcrse/site/internal/httperr"
	"github.com/ofcrse/site/internal/httpserver/deps"
	"github.com/ofcrse/site/internal/logger"
	"github.com/ofcrse/site/internal/shortlink"
)

const notFoundPage = "<h1>not here</h1>"

func testDeps(t *testing.T) deps.Deps {
	t.Helper()

	table, err := shortlink.NewTable(map[string]string{
		"blog":  "https://example.test/posts/1",
		"music": "https://open.spotify.com/artist/x",
	})
	require.NoError(t, err)

	return deps.Deps{
		Logger:      logger.NewNop(),
		Errors:      httperr.New([]byte(notFoundPage), "<pre>{{error}}</pre>", false, logger.NewNop()),
		Shortlinks:  table,
		SiteURL:     "https://example.test",
		CountPrefix: "/count",
	}
}

func TestHealthz(t *testing.T) {
	h := Healthz(testDeps(t))

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(method, "/healthz", nil))

		assert.Equal(t, http.StatusOK, w.Code, method)
		assert.Equal(t, "ok", w.Body.String(), method)
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	}

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func shortlinkRouter(d deps.Deps) http.Handler {
	r := chi.NewRouter()
	r.Get("/", ShortlinkHome(d))
	r.Get("/*", d.Errors.Handle(Shortlink(d)))
	return r
}

func TestShortlink(t *testing.T) {
	h := shortlinkRouter(testDeps(t))

	tests := []struct {
		name     string
		path     string
		status   int
		location string
	}{
		{name: "home", path: "/", status: http.StatusFound, location: "https://example.test"},
		{name: "hit", path: "/blog", status: http.StatusFound, location: "https://example.test/posts/1"},
		{name: "miss", path: "/missing", status: http.StatusNotFound},
		{name: "case sensitive", path: "/BLOG", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
			if tt.status == http.StatusNotFound {
				assert.Equal(t, notFoundPage, w.Body.String())
			}
		})
	}
}

func TestMusic(t *testing.T) {
	d := testDeps(t)
	h := d.Errors.Handle(Music(d))

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://open.spotify.com/artist/x", w.Header().Get("Location"))

	d.Shortlinks = shortlink.Table{}
	h = d.Errors.Handle(Music(d))
	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCrossSite(t *testing.T) {
	h := CrossSite(testDeps(t))

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/posts/1?ref=x%20y", nil))

	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://example.test/posts/1?ref=x%20y", w.Header().Get("Location"))
}

func writeContent(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"index.html":      "home",
		"app.js":          "console.log(1)",
		"style.css":       "body{}",
		"font.woff2":      "wOF2",
		"page.html":       "page",
		"blog/index.html": "blog index",
		"v1.0/readme.txt": "nested",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestStatic(t *testing.T) {
	d := testDeps(t)
	d.ContentRoot = writeContent(t)
	h := d.Errors.Handle(Static(d))

	tests := []struct {
		name        string
		path        string
		status      int
		body        string
		contentType string
		cache       string
	}{
		{name: "root index", path: "/", status: http.StatusOK, body: "home", contentType: "text/html; charset=utf-8"},
		{name: "script", path: "/app.js", status: http.StatusOK, body: "console.log(1)", contentType: "application/javascript", cache: ImmutableCache},
		{name: "style", path: "/style.css", status: http.StatusOK, body: "body{}", contentType: "text/css", cache: ImmutableCache},
		{name: "font", path: "/font.woff2", status: http.StatusOK, body: "wOF2", contentType: "font/woff2", cache: ImmutableCache},
		{name: "html keeps defaults", path: "/page.html", status: http.StatusOK, body: "page", contentType: "text/html; charset=utf-8"},
		{name: "implicit index", path: "/blog", status: http.StatusOK, body: "blog index", contentType: "text/html; charset=utf-8"},
		{name: "implicit index keeps query", path: "/blog?draft=1", status: http.StatusOK, body: "blog index", contentType: "text/html; charset=utf-8"},
		{name: "missing", path: "/missing", status: http.StatusNotFound, body: notFoundPage, contentType: "text/html; charset=utf-8", cache: "no-store"},
		{name: "missing asset", path: "/nope.css", status: http.StatusNotFound, body: notFoundPage, contentType: "text/html; charset=utf-8", cache: "no-store"},
		{name: "directory", path: "/v1.0", status: http.StatusNotFound, body: notFoundPage, contentType: "text/html; charset=utf-8", cache: "no-store"},
		{name: "escape attempt", path: "/../../etc/passwd", status: http.StatusNotFound, body: notFoundPage, contentType: "text/html; charset=utf-8", cache: "no-store"},
		{name: "name too long", path: "/" + strings.Repeat("a", 300), status: http.StatusNotFound, body: notFoundPage, contentType: "text/html; charset=utf-8", cache: "no-store"},
		{name: "asset name too long", path: "/" + strings.Repeat("a", 300) + ".js", status: http.StatusNotFound, body: notFoundPage, contentType: "text/html; charset=utf-8", cache: "no-store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
			assert.Equal(t, tt.contentType, w.Header().Get("Content-Type"))
			assert.Equal(t, tt.cache, w.Header().Get("Cache-Control"))
		})
	}
}

func TestStaticTrailingSlash(t *testing.T) {
	d := testDeps(t)
	d.ContentRoot = writeContent(t)
	h := d.Errors.Handle(Static(d))

	r := httptest.NewRequest(http.MethodGet, "http://example.test/blog/?draft=1", nil)
	w := httptest.NewRecorder()
	h(w, r)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "http://example.test/blog?draft=1", w.Header().Get("Location"))

	// Only the scheme is taken from forwarding headers, the host is always the request's own.
	r = httptest.NewRequest(http.MethodGet, "http://example.test/blog/", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	r.Header.Set("X-Forwarded-Host", "evil.test")
	w = httptest.NewRecorder()
	h(w, r)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://example.test/blog", w.Header().Get("Location"))

	r = httptest.NewRequest(http.MethodGet, "http://example.test/blog/", nil)
	r.Header.Set("X-Forwarded-Proto", "javascript")
	w = httptest.NewRecorder()
	h(w, r)
	assert.Equal(t, "http://example.test/blog", w.Header().Get("Location"))

	// Following the redirect lands on the same document as the index itself.
	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/blog", nil))
	direct := httptest.NewRecorder()
	h(direct, httptest.NewRequest(http.MethodGet, "/blog/index.html", nil))
	assert.Equal(t, direct.Code, w.Code)
	assert.Equal(t, direct.Body.String(), w.Body.String())
}

func TestStaticTrailingSlashKeepsEscapes(t *testing.T) {
	d := testDeps(t)
	d.ContentRoot = writeContent(t)
	h := d.Errors.Handle(Static(d))

	tests := map[string]string{
		"/a%3Fb/":     "http://example.test/a%3Fb",
		"/a%20b/":     "http://example.test/a%20b",
		"/a%3Fb/?x=1": "http://example.test/a%3Fb?x=1",
		"/blog//":     "http://example.test/blog",
		"/caf%C3%A9/": "http://example.test/caf%C3%A9",
	}

	for target, want := range tests {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "http://example.test"+target, nil))

		assert.Equal(t, http.StatusTemporaryRedirect, w.Code, target)
		assert.Equal(t, want, w.Header().Get("Location"), target)
	}
}

func TestCachePolicy(t *testing.T) {
	tests := map[string]string{
		"application/javascript":         ImmutableCache,
		"text/javascript; charset=utf-8": ImmutableCache,
		"text/css":                       ImmutableCache,
		"font/woff2":                     ImmutableCache,
		"text/html; charset=utf-8":       "",
		"image/png":                      "",
		"":                               "",
	}
	for ct, want := range tests {
		assert.Equal(t, want, CachePolicy(ct), ct)
	}
}

func TestUpstreamURL(t *testing.T) {
	tests := []struct {
		base, in, expected string
	}{
		{"https://stats.example.test", "/count", "https://stats.example.test"},
		{"https://stats.example.test", "/count/", "https://stats.example.test/"},
		{"https://stats.example.test", "/count/x?y=1", "https://stats.example.test/x?y=1"},
		{"https://stats.example.test/api/", "/count/x", "https://stats.example.test/api/x"},
		{"https://stats.example.test", "/count?p=%2Fblog", "https://stats.example.test?p=%2Fblog"},
	}

	for _, tt := range tests {
		base, err := url.Parse(tt.base)
		require.NoError(t, err)
		in, err := url.Parse(tt.in)
		require.NoError(t, err)

		got, err := upstreamURL(base, "/count", in)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got.String(), tt.in)
	}

	_, err := upstreamURL(nil, "/count", &url.URL{Path: "/count"})
	assert.Error(t, err)
}
