package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "stoneweight_"

	resultSuccess = "success"
	resultError   = "error"
)

// Exported result labels for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultEmpty   = "empty"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	calculationsTotal *prometheus.CounterVec
	calculatedWeight  prometheus.Histogram

	syncFallbacks *prometheus.CounterVec

	receiptTotal *prometheus.CounterVec
	exportTotal  *prometheus.CounterVec
)

// Init registers the metrics with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
		calculationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "calculations_total",
				Help: "Total weight calculations by result",
			},
			[]string{"result"},
		)
		calculatedWeight = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "calculated_weight_grams",
				Help:    "Total stone weight of calculated batches in grams",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
			},
		)
		syncFallbacks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sync_fallbacks_total",
				Help: "Registry operations that degraded to the local cache, by entity and operation",
			},
			[]string{"entity", "op"},
		)
		receiptTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "receipt_render_total",
				Help: "Total receipt renders by result",
			},
			[]string{"result"},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total exports by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			calculationsTotal,
			calculatedWeight,
			syncFallbacks,
			receiptTotal,
			exportTotal,
		)
	})
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency by chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if httpRequests != nil {
			httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		}
		if httpLatency != nil {
			httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		}
	})
}

// ObserveCalculation records a calculation. A nil-result calculation is
// counted as empty.
func ObserveCalculation(produced bool, totalWeight float64) {
	result := resultSuccess
	if !produced {
		result = ResultEmpty
	}
	if calculationsTotal != nil {
		calculationsTotal.WithLabelValues(result).Inc()
	}
	if produced && calculatedWeight != nil {
		calculatedWeight.Observe(totalWeight)
	}
}

// IncSyncFallback counts a registry operation served from the local cache
func IncSyncFallback(entity, op string) {
	if entity == "" {
		entity = "unknown"
	}
	if op == "" {
		op = "unknown"
	}
	if syncFallbacks != nil {
		syncFallbacks.WithLabelValues(entity, op).Inc()
	}
}

// ObserveReceipt counts a receipt render
func ObserveReceipt(result string) {
	if result == "" {
		result = resultSuccess
	}
	if receiptTotal != nil {
		receiptTotal.WithLabelValues(result).Inc()
	}
}

// ObserveExport counts an export by format
func ObserveExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
}
