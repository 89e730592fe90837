package handler

import (
	"net/http"

	"github.com/Dan9191/credit-dashboard/internal/config"
	"github.com/Dan9191/credit-dashboard/internal/metrics"
	"github.com/Dan9191/credit-dashboard/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the routes and middleware. Admin routes are registered only
// when admin login is configured.
func NewRouter(h *Handler, cfg *config.Config, m *metrics.Metrics, logger *logrus.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(logger))
	if m != nil {
		r.Use(middleware.MetricsMiddleware(m))
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	// Public routes
	r.HandleFunc("/", h.Dashboard).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/charts/{id}.{format:png|svg}", h.Chart).Methods(http.MethodGet)
	r.HandleFunc("/api/options", h.Options).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard", h.DashboardData).Methods(http.MethodGet)
	r.HandleFunc("/api/records", h.Records).Methods(http.MethodGet)
	r.HandleFunc("/api/records.csv", h.ExportCSV).Methods(http.MethodGet)

	r.Handle("/api/insights", h.limiter.Handler(http.HandlerFunc(h.CreateInsight))).Methods(http.MethodPost)

	if cfg.AdminEnabled() {
		r.HandleFunc("/login", h.Login).Methods(http.MethodPost)

		// Protected routes
		admin := r.NewRoute().Subrouter()
		admin.Use(middleware.AuthMiddleware(cfg))
		admin.HandleFunc("/api/insights", h.ListInsights).Methods(http.MethodGet)
		admin.HandleFunc("/admin/reload", h.Reload).Methods(http.MethodPost)
	}
	return r
}
