package handlers

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ofcrse/site/internal/httpserver/deps"
	"github.com/ofcrse/site/internal/logger"
	"github.com/ofcrse/site/internal/metrics"
	"github.com/ofcrse/site/internal/utils"
)

// NewProxyTransport clones the default transport with an upstream response header deadline.
func NewProxyTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ResponseHeaderTimeout = timeout
	return t
}

// upstreamURL strips prefix from the inbound path and appends the rest to base.
func upstreamURL(base *url.URL, prefix string, in *url.URL) (*url.URL, error) {
	if base == nil {
		return nil, errors.New("analytics upstream is not configured")
	}
	rest := strings.TrimPrefix(in.EscapedPath(), prefix)
	if rest != "" && !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}

	raw := strings.TrimRight(base.String(), "/") + rest
	if in.RawQuery != "" {
		raw += "?" + in.RawQuery
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "build analytics upstream url from %q", in.RequestURI())
	}
	return u, nil
}

// CountProxy forwards visit counting requests to the analytics collector and
// streams its answer back unchanged.
func CountProxy(d deps.Deps) http.HandlerFunc {
	transport := d.ProxyTransport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return func(w http.ResponseWriter, r *http.Request) {
		target, err := upstreamURL(d.GoatCounter, d.CountPrefix, r.URL)
		if err != nil {
			d.Errors.Internal(w, r, err)
			return
		}

		ctx := r.Context()
		if d.ProxyTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.ProxyTimeout)
			defer cancel()
		}

		clientIP := utils.ClientIP(r, d.ClientIPHeader)
		start := time.Now()

		proxy := &httputil.ReverseProxy{
			Transport: transport,
			Rewrite: func(pr *httputil.ProxyRequest) {
				pr.Out.URL = target
				pr.Out.Host = target.Host

				// Rewrite drops the forwarding chain, the client's own chain passes through untouched.
				if xff, ok := pr.In.Header["X-Forwarded-For"]; ok {
					pr.Out.Header["X-Forwarded-For"] = xff
				}
				for _, h := range d.StripHeaders {
					pr.Out.Header.Del(h)
				}
				if d.ClientIPHeader != "" {
					pr.Out.Header.Del(d.ClientIPHeader)
				}
				pr.Out.Header.Set("X-Real-IP", clientIP)
			},
			ModifyResponse: func(resp *http.Response) error {
				metrics.UpstreamRoundTrip(resp.StatusCode, time.Since(start))
				return nil
			},
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				metrics.UpstreamRoundTrip(0, time.Since(start))
				if errors.Is(ctx.Err(), context.Canceled) {
					d.Logger.Debug("client went away, analytics request abandoned",
						logger.String("path", r.URL.Path),
						logger.Error(err),
					)
					return
				}
				d.Errors.Internal(w, r, errors.Wrap(err, "analytics upstream request failed"))
			},
		}

		proxy.ServeHTTP(w, r.WithContext(ctx))
	}
}
