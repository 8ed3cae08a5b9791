package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/ofcrse/site/internal/utils"
)

type RateLimitConfig struct {
	Burst          int    // <= 0 disables limiting
	RefillPerMin   int    // tokens regained per client per minute
	MaxEntries     int    // tracked clients, least recently seen are evicted
	ClientIPHeader string // header carrying the real client IP (ex: Fly-Client-IP)
}

type limiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	clients *lru.Cache[string, *rate.Limiter]
}

func newLimiter(cfg RateLimitConfig) (*limiter, error) {
	if cfg.RefillPerMin < 1 {
		cfg.RefillPerMin = 1
	}
	if cfg.MaxEntries < 1 {
		cfg.MaxEntries = 1024
	}
	clients, err := lru.New[string, *rate.Limiter](cfg.MaxEntries)
	if err != nil {
		return nil, err
	}
	return &limiter{
		every:   rate.Every(time.Minute / time.Duration(cfg.RefillPerMin)),
		burst:   cfg.Burst,
		clients: clients,
	}, nil
}

func (l *limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.clients.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(l.every, l.burst)
	l.clients.Add(key, lim)
	return lim
}

// allow consumes one token for key. On refusal it reports how long until a token is available.
func (l *limiter) allow(key string, now time.Time) (ok bool, remaining int, retryAfter time.Duration) {
	lim := l.get(key)

	res := lim.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, 0, delay
	}
	return true, int(math.Floor(lim.TokensAt(now))), 0
}

// RateLimit throttles requests per client IP with a token bucket.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Burst <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	l, err := newLimiter(cfg)
	if err != nil {
		panic(err)
	}
	limitStr := strconv.Itoa(cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := utils.ClientIP(r, cfg.ClientIPHeader)

			ok, remaining, retry := l.allow(key, time.Now())
			w.Header().Set("X-RateLimit-Limit", limitStr)
			if !ok {
				sec := int(math.Ceil(retry.Seconds()))
				if sec < 1 {
					sec = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(sec))
				w.Header().Set("X-RateLimit-Remaining", "0")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}
