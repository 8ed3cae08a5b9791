package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ofcrse"

var processedRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "How many HTTP requests processed, partitioned by route target, method and status code.",
	},
	[]string{"target", "method", "code"},
)

var requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "http_request_duration_seconds",
	Help:      "How long it took to process the request, partitioned by route target.",
	Buckets:   []float64{.005, .01, .05, .1, .3, 1, 2, 5},
},
	[]string{"target"},
)

var upstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "analytics_upstream_duration_seconds",
	Help:      "Round trip to the analytics collector, partitioned by upstream status code (0 on transport failure).",
	Buckets:   []float64{.05, .1, .3, 1, 2, 5, 10},
},
	[]string{"code"},
)

var shortlinkLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shortlink_lookups_total",
		Help:      "Shortlink resolutions, partitioned by result (hit or miss).",
	},
	[]string{"result"},
)

var infoGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "info",
	Help:      "Information about the site version and commit hash",
}, []string{"version", "commit"})

func SetInfo(version, commit string) {
	infoGauge.With(prometheus.Labels{
		"version": version,
		"commit":  commit,
	}).Set(1)
}

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodConnect: true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// methodLabel keeps the method label bounded, anything non standard is "other".
func methodLabel(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

func HttpProcessedRequest(target, method string, code int, duration time.Duration) {
	processedRequests.With(prometheus.Labels{
		"target": target,
		"method": methodLabel(method),
		"code":   strconv.Itoa(code),
	}).Inc()
	requestDuration.With(prometheus.Labels{"target": target}).Observe(duration.Seconds())
}

func UpstreamRoundTrip(code int, duration time.Duration) {
	upstreamDuration.With(prometheus.Labels{"code": strconv.Itoa(code)}).Observe(duration.Seconds())
}

func ShortlinkLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	shortlinkLookups.With(prometheus.Labels{"result": result}).Inc()
}

// SetupHandler returns a mux exposing /metrics from a dedicated registry.
func SetupHandler() http.Handler {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		infoGauge,
		processedRequests,
		requestDuration,
		upstreamDuration,
		shortlinkLookups,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux
}
