package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertjournal_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concertjournal_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	ConcertWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertjournal_concert_writes_total",
			Help: "Concert writes by kind",
		},
		[]string{"kind"},
	)
	ImportRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertjournal_import_rows_total",
			Help: "Imported spreadsheet rows by outcome",
		},
		[]string{"outcome"},
	)
	RemoteLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertjournal_remote_lookups_total",
			Help: "Outbound lookups (artist artwork, update checks) by service and outcome",
		},
		[]string{"service", "outcome"},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequests, HTTPDuration, ConcertWrites, ImportRows, RemoteLookups)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
