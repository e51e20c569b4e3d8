package v1

import (
    "net/http"
    "strconv"
    "time"

    chimw "github.com/go-chi/chi/v5/middleware"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    httpRequestsTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "compta",
            Name:      "http_requests_total",
            Help:      "Total number of HTTP requests",
        },
        []string{"method", "route", "status"},
    )
    httpRequestDuration = promauto.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "compta",
            Name:      "http_request_duration_seconds",
            Help:      "Duration of HTTP requests in seconds",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"method", "route"},
    )
    entryEventsTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "compta",
            Name:      "entry_events_total",
            Help:      "Entries created, validated and deleted",
        },
        []string{"event"},
    )
    periodsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
        Namespace: "compta",
        Name:      "periods_closed_total",
        Help:      "Fiscal periods closed, directly or by a fiscal year close",
    })
    operationsPostedTotal = promauto.NewCounter(prometheus.CounterOpts{
        Namespace: "compta",
        Name:      "operations_posted_total",
        Help:      "Entries generated from operation templates",
    })
    yearTransitionsTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "compta",
            Name:      "fiscal_year_transitions_total",
            Help:      "Fiscal year status transitions by target status",
        },
        []string{"status"},
    )
    domainErrorsTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "compta",
            Name:      "domain_errors_total",
            Help:      "Rejected operations by error code",
        },
        []string{"code"},
    )
)

func metricsHandler() http.Handler {
    return promhttp.Handler()
}

func metricsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
        start := time.Now()
        next.ServeHTTP(ww, r)
        route := routePattern(r)
        httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
        httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
    })
}
