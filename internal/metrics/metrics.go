package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	fetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webstories_fetches_total",
		Help: "Outbound HTTP fetches by status class.",
	}, []string{"status"})

	fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "webstories_fetch_duration_seconds",
		Help:    "Duration of outbound HTTP fetches.",
		Buckets: prometheus.DefBuckets,
	})

	errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webstories_errors_total",
		Help: "Pipeline errors by package and cause.",
	}, []string{"package", "cause"})

	artifactsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webstories_artifacts_total",
		Help: "Artifacts written by kind.",
	}, []string{"kind"})

	importsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webstories_imports_total",
		Help: "Story imports by outcome.",
	}, []string{"outcome"})

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webstories_http_requests_total",
		Help: "Inbound HTTP requests.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webstories_http_request_duration_seconds",
		Help:    "Duration of inbound HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// MustRegister registers the package collectors with registerer. Only the
// first call has an effect.
func MustRegister(registerer prometheus.Registerer) {
	registerOnce.Do(func() {
		registerer.MustRegister(
			fetchesTotal,
			fetchDuration,
			errorsTotal,
			artifactsTotal,
			importsTotal,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

func ObserveFetch(httpStatus int, duration time.Duration) {
	fetchesTotal.WithLabelValues(statusClass(httpStatus)).Inc()
	fetchDuration.Observe(duration.Seconds())
}

func IncError(packageName string, cause string) {
	errorsTotal.WithLabelValues(packageName, cause).Inc()
}

func IncArtifact(kind string) {
	artifactsTotal.WithLabelValues(kind).Inc()
}

func IncImport(outcome string) {
	importsTotal.WithLabelValues(outcome).Inc()
}

// Middleware records inbound request counts and latency, labelled by the
// chi route pattern so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
