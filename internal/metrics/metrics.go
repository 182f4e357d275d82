// Package metrics exposes prometheus instrumentation for HTTP traffic and
// the partner workflow.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jason-s-yu/fittogether/internal/partner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fittogether_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	PartnerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fittogether_partner_events_total",
			Help: "Committed partner workflow events by type",
		},
		[]string{"type"},
	)
)

// EventRecorder counts partner events. It satisfies partner.Notifier.
type EventRecorder struct{}

func (EventRecorder) Notify(ctx context.Context, ev partner.Event) error {
	PartnerEvents.WithLabelValues(string(ev.Type)).Inc()
	return nil
}

// Middleware observes request durations labelled by chi route pattern, so
// path parameters do not blow up label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
