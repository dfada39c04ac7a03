package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/corray333/backend-labs/shop/internal/config"
	"github.com/corray333/backend-labs/shop/internal/transport/http/pipeline"
	"github.com/corray333/backend-labs/shop/pkg/http/middleware/metrics"
	"github.com/corray333/backend-labs/shop/pkg/http/middleware/ratelimit"
	"github.com/corray333/backend-labs/shop/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/shop/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const limiterIdle = 10 * time.Minute

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	limiter *ratelimit.Limiter
	checks  map[string]HealthCheck
	log     *slog.Logger
}

// option is a function that configures the HTTPTransport.
type option func(*transportSettings)

type transportSettings struct {
	log         *slog.Logger
	serviceName string
	registry    *prometheus.Registry
	checks      map[string]HealthCheck
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithLogger(log *slog.Logger) option {
	return func(s *transportSettings) {
		s.log = log
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithServiceName(name string) option {
	return func(s *transportSettings) {
		s.serviceName = name
	}
}

// WithRegistry exposes reg on /metrics and records request metrics into it.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithRegistry(reg *prometheus.Registry) option {
	return func(s *transportSettings) {
		s.registry = reg
	}
}

// WithHealthChecks adds named dependency checks to /health.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithHealthChecks(checks map[string]HealthCheck) option {
	return func(s *transportSettings) {
		for name, check := range checks {
			s.checks[name] = check
		}
	}
}

func NewHTTPTransport(cfg config.ServerConfig, opts ...option) *HTTPTransport {
	s := &transportSettings{
		log:         slog.Default(),
		serviceName: "shop-svc",
		checks:      map[string]HealthCheck{},
	}
	for _, opt := range opts {
		opt(s)
	}

	h := &HTTPTransport{
		checks: s.checks,
		log:    s.log,
	}
	if cfg.RateLimit.Enabled {
		h.limiter = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, limiterIdle, s.log)
	}

	h.router = h.newRouter(cfg, s)
	h.server = newServer(cfg, h.router)

	return h
}

// Handler returns the root handler, mainly for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// Run serves until Shutdown is called.
func (h *HTTPTransport) Run(ctx context.Context) error {
	if h.limiter != nil {
		go h.limiter.Run(ctx, time.Minute)
	}

	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes mounts the versioned API operations through d.
func (h *HTTPTransport) RegisterRoutes(d *pipeline.Dispatcher, ops ...pipeline.Operation) {
	d.Mount(h.router, ops...)
}

func (h *HTTPTransport) newRouter(cfg config.ServerConfig, s *transportSettings) *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.NewLoggerMiddleware(s.log))
	router.Use(middleware.Recoverer)
	router.Use(trace.NewTraceMiddleware(s.serviceName))

	if s.registry != nil {
		router.Use(metrics.New("shop", s.registry).Handler)
	}
	if h.limiter != nil {
		router.Use(h.limiter.Handler)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Deprecation", "Warning"},
		AllowCredentials: false,
		MaxAge:           cfg.CORS.MaxAge,
	})

	router.Use(c.Handler)

	router.Get("/health", h.health)
	if s.registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	return router
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HTTPTransport) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.WarnContext(ctx, "Health check failed", "check", name, "error", err)
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable

			continue
		}
		resp.Checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.ErrorContext(ctx, "Error sending response", "error", err)
	}
}

func newServer(cfg config.ServerConfig, router http.Handler) *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + strconv.Itoa(cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
