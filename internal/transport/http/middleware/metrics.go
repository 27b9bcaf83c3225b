package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics считает запросы и длительность обработки по маршрутам chi.
// В качестве метки path берётся шаблон маршрута, а не сырой URL,
// чтобы не взрывать кардинальность.
func Metrics(reg prometheus.Registerer) Middleware {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth_api",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Количество HTTP-запросов.",
	}, []string{"method", "path", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "auth_api",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Длительность обработки HTTP-запроса.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	reg.MustRegister(requests, duration)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)

			next.ServeHTTP(sw, r)

			if sw.status == 0 {
				sw.status = http.StatusOK
			}

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pat := rctx.RoutePattern(); pat != "" {
					path = pat
				}
			}

			requests.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
			duration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}
