package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP and auth collectors. A nil *Metrics records nothing.
type Metrics struct {
	requestDuration *prometheus.HistogramVec
	authEvents      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		authEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskboard_auth_events_total",
			Help: "Authentication events by outcome.",
		}, []string{"event", "outcome"}),
	}
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.requestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) RecordAuthEvent(event string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}
