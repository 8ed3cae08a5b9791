package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPort           = "3000"
	DefaultSiteURL        = "http://localhost:3000"
	DefaultShortlinksFile = "shortlinks.json"

	// ProductionEnv is the only APP_ENV value treated as production.
	ProductionEnv = "production"
)

type Config struct {
	ListenPort      string        // ex: ":3000"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel   string // "debug" | "info" | "warn" | "error"
	PrettyLog  bool   // true => zap dev (color), false => zap prod (JSON)
	Production bool   // APP_ENV == "production", hides diagnostics from error pages

	SiteURL string // canonical site, target of shortlink home and cross-site redirects

	// Analytics proxy
	GoatCounterURL   string        // upstream base URL (ex: https://stats.example.test)
	CountPrefix      string        // path prefix forwarded upstream (ex: /count)
	ProxyTimeout     time.Duration // deadline for one upstream exchange
	ClientIPHeader   string        // inbound header carrying the real client IP
	StripHeaders     []string      // platform forwarding headers never sent upstream
	CountRateBurst   int           // 0 disables the per-client limiter
	CountRatePerMin  int           // refill rate of the per-client limiter
	CountRateEntries int           // max tracked clients

	// Shortlinks
	ShortlinksFile      string        // JSON or YAML file, used when ShortlinksDB is empty
	ShortlinksDB        string        // redis URL (ex: redis://localhost:6379/0)
	ShortlinksKey       string        // redis hash holding the table
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries, doubles up to RedisMaxWait
	RedisMaxWait        time.Duration
	RedisPingTimeout    time.Duration

	// Static content
	ContentRoot   string // directory served on the primary host
	ErrorPagesDir string // holds 404.html and 500.html

	// Host routing
	HealthCheckHost string
	ShortlinkHost   string
	MusicHost       string
	RedirectHosts   []string // answered with a 301 to SiteURL
	GuardedDomains  []string // "*.domain" patterns answered with a 404

	// Metrics
	MetricsAddr         string   // empty disables the metrics listener
	MetricsAllowedCIDRS []string // optional allow-list for the metrics listener
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      ":" + mustPort("PORT", DefaultPort),
		ShutdownTimeout: mustDuration("SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging / environment
		LogLevel:   getenv("LOG_LEVEL", "info"),
		PrettyLog:  mustBool("PRETTY_LOG", true),
		Production: isProduction(getenv("APP_ENV", "development")),

		SiteURL: mustAbsoluteURL("SITE_URL", DefaultSiteURL),

		// Analytics proxy
		GoatCounterURL:   mustAbsoluteURL("GOATCOUNTER_URL", DefaultSiteURL),
		CountPrefix:      normalizePrefix(getenv("COUNT_PREFIX", "/count")),
		ProxyTimeout:     mustDuration("PROXY_TIMEOUT", 10*time.Second),
		ClientIPHeader:   getenv("CLIENT_IP_HEADER", "Fly-Client-IP"),
		StripHeaders:     splitAndTrim(getenv("PROXY_STRIP_HEADERS", "Fly-Forwarded-Port,Fly-Region,X-Forwarded-Proto,X-Forwarded-Port,X-Forwarded-Ssl")),
		CountRateBurst:   getenvInt("COUNT_RATE_BURST", 0),
		CountRatePerMin:  getenvInt("COUNT_RATE_PER_MIN", 60),
		CountRateEntries: getenvInt("COUNT_RATE_ENTRIES", 10000),

		// Shortlinks
		ShortlinksFile:      getenv("SHORTLINKS_FILE", DefaultShortlinksFile),
		ShortlinksDB:        getenv("SHORTLINKS_DB", ""),
		ShortlinksKey:       getenv("SHORTLINKS_DB_KEY", "shortlinks"),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 15*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 5*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 3*time.Second),

		// Static content
		ContentRoot:   getenv("CONTENT_ROOT", "dist"),
		ErrorPagesDir: getenv("ERROR_PAGES_DIR", "dist"),

		// Host routing
		HealthCheckHost: strings.ToLower(getenv("HEALTH_CHECK_HOST", "health.check")),
		ShortlinkHost:   strings.ToLower(getenv("SHORTLINK_HOST", "l.ofcr.se")),
		MusicHost:       strings.ToLower(getenv("MUSIC_HOST", "music.ofcr.se")),
		RedirectHosts:   splitAndTrim(getenv("REDIRECT_HOSTS", "oftcour.se,www.oftcour.se,ofcrse.fly.dev")),
		GuardedDomains:  splitAndTrim(getenv("GUARDED_DOMAINS", "*.ofcr.se,*.oftcour.se")),

		// Metrics
		MetricsAddr:         getenv("METRICS_ADDR", ""),
		MetricsAllowedCIDRS: splitAndTrim(getenv("METRICS_ALLOWED_CIDRS", "")),
	}

	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.ShortlinksDB != "" {
			cfgCopy.ShortlinksDB = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// mustPort panics on anything that is not a TCP port number.
func mustPort(key, def string) string {
	v := getenv(key, def)
	p, err := strconv.Atoi(v)
	if err != nil || p < 0 || p > 65535 {
		panic(fmt.Sprintf("❌ FATAL: Invalid port value for %s: %s", key, v))
	}
	return strconv.Itoa(p)
}

// mustAbsoluteURL panics unless the value parses with both a scheme and a host.
// A trailing slash is dropped so paths can be appended directly.
func mustAbsoluteURL(key, def string) string {
	v := getenv(key, def)
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		panic(fmt.Sprintf("❌ FATAL: Invalid absolute URL for %s: %s", key, v))
	}
	return strings.TrimSuffix(v, "/")
}

func isProduction(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), ProductionEnv)
}

func normalizePrefix(p string) string {
	p = "/" + strings.Trim(strings.TrimSpace(p), "/")
	if p == "/" {
		panic("❌ FATAL: COUNT_PREFIX must not be the site root")
	}
	return p
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
