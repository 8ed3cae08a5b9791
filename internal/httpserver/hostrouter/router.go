// Package hostrouter dispatches requests to a handler chosen from the Host header.
package hostrouter

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ofcrse/site/internal/httpserver/mw"
	"github.com/ofcrse/site/internal/logger"
	"github.com/ofcrse/site/internal/metrics"
)

// Target is the behavior a request is dispatched to.
type Target int

const (
	Primary Target = iota
	HealthCheck
	Shortlinks
	Music
	CrossSite
	Guarded
)

var targetNames = map[Target]string{
	Primary:     "primary",
	HealthCheck: "health",
	Shortlinks:  "shortlinks",
	Music:       "music",
	CrossSite:   "cross_site",
	Guarded:     "guarded",
}

func (t Target) String() string {
	if n, ok := targetNames[t]; ok {
		return n
	}
	return fmt.Sprintf("target(%d)", int(t))
}

// Config lists the host names bound to each non-primary target.
type Config struct {
	HealthCheckHost string
	ShortlinkHost   string
	MusicHost       string
	RedirectHosts   []string
	GuardedDomains  []string // "*.example.com" patterns
}

// Handlers binds every Target to the handler that serves it.
type Handlers map[Target]http.Handler

// Router is an http.Handler selecting exactly one Target per request.
type Router struct {
	health    string
	shortlink string
	music     string
	redirects map[string]struct{}
	guarded   []string
	handlers  Handlers
	log       logger.Logger
}

// New builds a Router. Every Target must have a handler.
func New(cfg Config, handlers Handlers, log logger.Logger) (*Router, error) {
	for t := range targetNames {
		if handlers[t] == nil {
			return nil, fmt.Errorf("hostrouter: no handler for target %s", t)
		}
	}

	rt := &Router{
		health:    normalizeHost(cfg.HealthCheckHost),
		shortlink: normalizeHost(cfg.ShortlinkHost),
		music:     normalizeHost(cfg.MusicHost),
		redirects: make(map[string]struct{}, len(cfg.RedirectHosts)),
		handlers:  handlers,
		log:       log,
	}
	for _, h := range cfg.RedirectHosts {
		if h = normalizeHost(h); h != "" {
			rt.redirects[h] = struct{}{}
		}
	}
	for _, p := range cfg.GuardedDomains {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			rt.guarded = append(rt.guarded, p)
		}
	}

	log.Debugf("hostrouter: health=%q shortlink=%q music=%q redirects=%d guarded=%v",
		rt.health, rt.shortlink, rt.music, len(rt.redirects), rt.guarded)

	return rt, nil
}

// Select picks the target for a raw Host header value.
// Exact hosts are checked first, then guarded wildcards. Anything else is primary.
func (rt *Router) Select(rawHost string) Target {
	host := normalizeHost(rawHost)
	if host == "" {
		return Primary
	}

	switch host {
	case rt.health:
		return HealthCheck
	case rt.shortlink:
		return Shortlinks
	case rt.music:
		return Music
	}
	if _, ok := rt.redirects[host]; ok {
		return CrossSite
	}
	for _, pattern := range rt.guarded {
		if matchHost(host, pattern) {
			return Guarded
		}
	}
	return Primary
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	target := rt.Select(r.Host)
	rt.log.Debugf("hostrouter: host=%q -> %s", r.Host, target)

	ww := mw.Wrap(w)
	rt.handlers[target].ServeHTTP(ww, r)

	metrics.HttpProcessedRequest(target.String(), r.Method, ww.Status(), time.Since(start))
}

// normalizeHost lowercases and strips the port and any trailing dot.
func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if h == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	return strings.TrimSuffix(h, ".")
}

// matchHost reports whether host matches pattern. "*.example.com" matches
// strict subdomains only, never example.com itself.
func matchHost(host, pattern string) bool {
	if host == pattern {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:]
		return len(host) > len(suffix) && strings.HasSuffix(host, suffix)
	}
	return false
}
