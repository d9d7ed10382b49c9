package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "reviewinbox"

var inboundBuckets = []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
}

// transport
var (
	HTTPRequests = counter("http_requests_total", "HTTP requests served.", "route", "method", "status")
	HTTPLatency  = histogram("http_request_duration_seconds", "HTTP request duration.", prometheus.DefBuckets, "route", "method")
)

// dependencies: llm, redis
var (
	ExternalRequests = counter("external_requests_total", "Calls to upstream services.", "service", "endpoint", "status")
	ExternalLatency  = histogram("external_request_duration_seconds", "Upstream call duration.", prometheus.DefBuckets, "service", "endpoint")
	CacheEvents      = counter("cache_events_total", "Cache hit/miss/set/del/error events.", "cache", "event")
)

// pipeline
var (
	InboundOutcomes      = counter("inbound_outcomes_total", "Inbound messages by terminal outcome and furthest stage.", "outcome", "stage")
	InboundLatency       = histogram("inbound_processing_seconds", "Time spent processing one inbound message.", inboundBuckets, "outcome")
	Extractions          = counter("extractions_total", "Content extraction by winning stage (heuristic|llm|none).", "stage")
	RejectionLogFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "rejection_log_failures_total",
		Help: "Rejection audit rows that could not be written.",
	})
)

func pipelineCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequests, HTTPLatency,
		ExternalRequests, ExternalLatency, CacheEvents,
		InboundOutcomes, InboundLatency, Extractions, RejectionLogFailures,
	}
}

// InitRegistry returns a fresh registry holding every collector above plus
// the Go runtime and process collectors.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(pipelineCollectors()...)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve exposes reg on a separate listener. An empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics listener up")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics listener stopped")
		}
	}()
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { CacheEvents.WithLabelValues(cache, event).Inc() }

func ObserveInbound(outcome, stage string, dur time.Duration) {
	InboundOutcomes.WithLabelValues(outcome, stage).Inc()
	InboundLatency.WithLabelValues(outcome).Observe(dur.Seconds())
}

func ObserveExtraction(stage string) { Extractions.WithLabelValues(stage).Inc() }

func ObserveRejectionLogFailure() { RejectionLogFailures.Inc() }

// LabelErr gives a low-cardinality name for an error.
func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
