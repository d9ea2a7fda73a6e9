package observability

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	StoreAppends = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "store_appends_total", Help: "Review appends by backend and outcome."},
		[]string{"backend", "outcome"}, // outcome: ok|duplicate|error
	)
	StoreSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "reviews", Name: "store_size", Help: "Reviews held by the store."},
		[]string{"backend"},
	)
	QueryResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "query_results",
			Help:    "Reviews returned per query.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	ScoreLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "sentiment_score_duration_seconds",
			Help:    "Time spent scoring one review body.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		},
	)
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "rate_limited_total", Help: "Requests rejected by the rate limiter."},
		[]string{"route"},
	)
)

func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

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

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency,
		StoreAppends, StoreSize, QueryResults, ScoreLatency, RateLimited,
	}
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors()...)
	return reg
}

// RegisterDefault exposes the same collectors on the default registry served by Serve.
func RegisterDefault() {
	for _, c := range collectors() {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				log.Warn().Err(err).Msg("register collector failed")
			}
		}
	}
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

func ObserveAppend(backend, outcome string) { // outcome: ok|duplicate|error
	StoreAppends.WithLabelValues(backend, outcome).Inc()
}

func SetStoreSize(backend string, n int) { StoreSize.WithLabelValues(backend).Set(float64(n)) }

func ObserveQuery(results int) { QueryResults.Observe(float64(results)) }

func ObserveScore(dur time.Duration) { ScoreLatency.Observe(dur.Seconds()) }

func ObserveRateLimited(route string) { RateLimited.WithLabelValues(route).Inc() }
