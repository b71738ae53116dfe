package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/facet-api/facet/internal/api"
)

// RouterConfig holds transport-level settings
type RouterConfig struct {
	// BaseURL is where the resource routes mount; it must match the base
	// URL the service generates links with. Empty means /api/v1.
	BaseURL string

	// CORSOrigins lists the origins allowed to call the API; empty
	// disables CORS entirely
	CORSOrigins []string
}

// NewRouter wires the middleware stack and the resource routes. The
// prometheus registry is optional; nil uses the default one.
func NewRouter(h *Handler, logger *zap.Logger, promReg *prometheus.Registry, cfg RouterConfig) chi.Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	if promReg != nil {
		gatherer = promReg
		registerer = promReg
	}
	metrics := NewMetrics(registerer)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recovery(logger))
	r.Use(Logging(logger))
	r.Use(metrics.Middleware)

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "X-Request-ID"},
			ExposedHeaders:   []string{"ETag", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "/api/v1"
	}
	r.Route(baseURL, func(r chi.Router) {
		r.Get("/{kind}", h.List)
		r.Post("/{kind}", h.Create)
		r.Get("/{kind}/{id}", h.Get)
		r.Put("/{kind}/{id}", h.Update)
		r.Delete("/{kind}/{id}", h.Delete)
		r.Get("/{kind}/{id}/{edge}", h.Edge)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, api.PathNotFound())
	})

	return r
}
