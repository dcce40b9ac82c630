package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coderr",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coderr",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coderr",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	registrations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coderr",
			Subsystem: "accounts",
			Name:      "registrations_total",
			Help:      "Total number of accounts registered.",
		},
	)

	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coderr",
			Subsystem: "accounts",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		},
		[]string{"result"},
	)

	marketplaceEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coderr",
			Subsystem: "marketplace",
			Name:      "events_total",
			Help:      "Offers, orders and reviews written, by kind.",
		},
		[]string{"kind"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coderr",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by cache and result.",
		},
		[]string{"cache", "result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		registrations,
		logins,
		marketplaceEvents,
		cacheLookups,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Paths are labelled by their chi route pattern to keep cardinality bounded.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := routePattern(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// RecordRegistration counts a created account.
func RecordRegistration() {
	registrations.Inc()
}

// RecordLogin counts a login attempt.
func RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	logins.WithLabelValues(result).Inc()
}

// Marketplace event kinds.
const (
	EventOfferCreated  = "offer_created"
	EventOfferUpdated  = "offer_updated"
	EventOfferDeleted  = "offer_deleted"
	EventOrderCreated  = "order_created"
	EventOrderUpdated  = "order_updated"
	EventOrderDeleted  = "order_deleted"
	EventReviewCreated = "review_created"
	EventReviewUpdated = "review_updated"
	EventReviewDeleted = "review_deleted"
)

// RecordEvent counts a marketplace write.
func RecordEvent(kind string) {
	marketplaceEvents.WithLabelValues(kind).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(cache, result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
