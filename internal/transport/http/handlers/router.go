package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/auth-api/internal/transport/http/middleware"
)

// Pinger проверяет доступность хранилища (для /healthz).
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterOptions — зависимости и настройки маршрутизатора.
type RouterOptions struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// Registry для HTTP-метрик и /metrics; nil — prometheus.DefaultRegisterer.
	Registry *prometheus.Registry
	// Pinger для /healthz; nil — проверка сводится к liveness.
	Pinger Pinger
}

// NewRouter собирает chi-роутер сервиса: служебные эндпоинты,
// общий стек мидлваров и маршруты /auth/*.
func NewRouter(h *Handlers, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	metricsHandler := promhttp.Handler()
	if opts.Registry != nil {
		reg = opts.Registry
		metricsHandler = promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})
	}

	r.Use(
		middleware.Recover(opts.Logger),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
		middleware.Metrics(reg),
		middleware.Timeout(opts.Timeout),
	)

	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if opts.Pinger != nil {
			if err := opts.Pinger.Ping(req.Context()); err != nil {
				http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/forgotpass", h.ForgotPassword)
		r.Patch("/resetpass/{resetToken}", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthBearer(h.svc))
			r.Post("/logout", h.Logout)
			r.Post("/logout-all", h.LogoutAll)
		})
	})

	return r
}
