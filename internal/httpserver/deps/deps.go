package deps

import (
	"net/http"
	"net/url"
	"time"

	"github.com/ofcrse/site/internal/httperr"
	"github.com/ofcrse/site/internal/httpserver/mw"
	"github.com/ofcrse/site/internal/logger"
	"github.com/ofcrse/site/internal/shortlink"
)

// Deps is the read-only state shared by every handler. It is assembled once
// during startup and never mutated afterwards.
type Deps struct {
	Logger     logger.Logger
	Errors     *httperr.Presenter // 404 document and 500 template
	Shortlinks shortlink.Table    // immutable, safe for concurrent reads
	SiteURL    string             // canonical site, no trailing slash
	StartTime  time.Time

	// Analytics proxy
	GoatCounter    *url.URL          // upstream base URL
	CountPrefix    string            // ex: /count
	ProxyTimeout   time.Duration     // deadline for one upstream exchange
	ProxyTransport http.RoundTripper // nil => http.DefaultTransport
	ClientIPHeader string            // ex: Fly-Client-IP
	StripHeaders   []string          // never forwarded upstream
	RateLimit      mw.RateLimitConfig

	ContentRoot string // static files served on the primary host
}
