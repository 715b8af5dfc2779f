package http

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "riyalmind",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "riyalmind",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and path.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)

func observeRequest(method, path string, status int, d time.Duration) {
	requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
