package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "distrib"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	GeoResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "geo_resolutions_total", Help: "Coordinate resolutions by source."},
		[]string{"source", "outcome"}, // source: stored|link|memory|cache|geocoder; outcome: ok|failure
	)
	Assignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "area_assignments_total", Help: "Area assignment runs per property."},
		[]string{"outcome"}, // changed|unchanged|geo_failure|error
	)
	Qualifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "buyer_evaluations_total", Help: "Buyer evaluations by result."},
		[]string{"result"}, // qualified|rejected|<exclusion reason>
	)
	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "assign_batch_duration_seconds",
			Help:    "Duration of a batch area assignment run.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)
)

// Serve exposes /metrics on addr in the background. Empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency,
		ExternalRequests, ExternalLatency,
		CacheEvents, GeoResolutions,
		Assignments, Qualifications, BatchDuration,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveGeo(source string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failure"
	}
	GeoResolutions.WithLabelValues(source, outcome).Inc()
}

func ObserveAssignment(outcome string) {
	Assignments.WithLabelValues(outcome).Inc()
}

func ObserveQualification(result string) {
	Qualifications.WithLabelValues(result).Inc()
}

func ObserveBatch(dur time.Duration) {
	BatchDuration.Observe(dur.Seconds())
}
