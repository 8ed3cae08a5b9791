package handlers

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/ofcrse/site/internal/httperr"
	"github.com/ofcrse/site/internal/httpserver/deps"
	"github.com/ofcrse/site/internal/logger"
)

// ImmutableCache is applied to fingerprinted script, style and font assets.
const ImmutableCache = "public, max-age=31536000"

var contentTypes = map[string]string{
	".js":    "application/javascript",
	".css":   "text/css",
	".woff2": "font/woff2",
}

var longLived = map[string]bool{
	"application/javascript": true,
	"text/javascript":        true,
	"text/css":               true,
	"font/woff2":             true,
}

// CachePolicy returns the Cache-Control value for a content type, empty to keep server defaults.
func CachePolicy(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if longLived[mediaType] {
		return ImmutableCache
	}
	return ""
}

func contentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return mime.TypeByExtension(ext)
}

// Static serves files below d.ContentRoot. Trailing slashes are redirected
// away, extensionless paths resolve to their index.html.
func Static(d deps.Deps) httperr.HandlerFunc {
	root := http.Dir(d.ContentRoot)

	return func(w http.ResponseWriter, r *http.Request) error {
		p := r.URL.Path
		if p == "" {
			p = "/"
		}

		if raw := r.URL.EscapedPath(); raw != "/" && strings.HasSuffix(raw, "/") {
			http.Redirect(w, r, canonicalURL(r, strings.TrimRight(raw, "/")), http.StatusTemporaryRedirect)
			return nil
		}

		name := p
		if !strings.Contains(path.Base(p), ".") {
			name = path.Join(p, "index.html")
		}

		// A path that cannot be opened (missing, too long, invalid bytes) names no file.
		f, err := root.Open(name)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				d.Logger.Debug("static lookup failed",
					logger.String("path", name),
					logger.Error(err))
			}
			return httperr.ErrNotFound
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			return errors.Wrapf(err, "stat %s", name)
		}
		if info.IsDir() {
			return httperr.ErrNotFound
		}

		if ct := contentType(name); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		if cc := CachePolicy(w.Header().Get("Content-Type")); cc != "" {
			w.Header().Set("Cache-Control", cc)
		}

		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
		return nil
	}
}

// canonicalURL rebuilds an absolute URL for the escaped path p on the request
// host, keeping the scheme from X-Forwarded-Proto when present.
func canonicalURL(r *http.Request, p string) string {
	proto := strings.ToLower(r.Header.Get("X-Forwarded-Proto"))
	if proto != "http" && proto != "https" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}
	host := r.Host
	if p == "" {
		p = "/"
	}
	u := proto + "://" + host + p
	if r.URL.RawQuery != "" {
		u += "?" + r.URL.RawQuery
	}
	return u
}
