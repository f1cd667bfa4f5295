package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	checkOutcomesTotal  *prometheus.CounterVec
	answerKeyCacheTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lanex_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lanex_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lanex_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		checkOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lanex_check_outcomes_total",
			Help: "Server-side test checks by outcome.",
		}, []string{"outcome"})

		answerKeyCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lanex_answer_key_cache_total",
			Help: "Answer key lookups by cache result.",
		}, []string{"result"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, checkOutcomesTotal, answerKeyCacheTotal)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// CheckOutcomes counts server-side checks.
func CheckOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return checkOutcomesTotal
}

// AnswerKeyCache counts answer key cache hits and misses.
func AnswerKeyCache() *prometheus.CounterVec {
	RegisterMetrics()
	return answerKeyCacheTotal
}
