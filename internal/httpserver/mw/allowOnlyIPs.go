package mw

import (
	"net/http"

	"github.com/ofcrse/site/internal/logger"
	"github.com/ofcrse/site/internal/utils"
)

// AllowOnlyCIDRS allows only specific IPs/CIDRs. If the list is empty, it does NOT filter (passthrough).
// clientIPHeader names the platform header carrying the real client IP, empty to use the peer address.
func AllowOnlyCIDRS(allowed []string, clientIPHeader string, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		log.Debug("AllowOnlyCIDRS: empty matcher, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	log.Debugf("AllowOnlyCIDRS: initialized with %d rules, header=%q", len(allowed), clientIPHeader)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, clientIPHeader)
			if !m.Allow(ip) {
				log.Debugf("AllowOnlyCIDRS: IP %s REJECTED (RemoteAddr=%s)", ip, r.RemoteAddr)
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
