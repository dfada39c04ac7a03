package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corray333/backend-labs/shop/internal/config"
	"github.com/corray333/backend-labs/shop/internal/transport/http/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.ServerConfig {
	return config.ServerConfig{
		Port: 8080,
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}, MaxAge: 300},
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func TestHealth(t *testing.T) {
	healthy := NewHTTPTransport(testConfig(), WithLogger(discard()),
		WithHealthChecks(map[string]HealthCheck{"postgres": func(context.Context) error { return nil }}))
	rec := get(healthy.Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"postgres":"ok"}}`, rec.Body.String())

	broken := NewHTTPTransport(testConfig(), WithLogger(discard()),
		WithHealthChecks(map[string]HealthCheck{"redis": func(context.Context) error { return errors.New("dial tcp: refused") }}))
	rec = get(broken.Handler(), "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"redis":"dial tcp: refused"}}`, rec.Body.String())
}

func TestRoutesAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	tr := NewHTTPTransport(testConfig(), WithLogger(discard()), WithRegistry(reg))
	tr.RegisterRoutes(pipeline.NewDispatcher(pipeline.WithLogger(discard())), pipeline.Operation{
		Method:  http.MethodGet,
		Pattern: "/ping",
		Handle:  func(*http.Request) (pipeline.Response, error) { return pipeline.OK("pong"), nil },
	})

	rec := get(tr.Handler(), "/api/v1/ping")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	rec = get(tr.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `shop_http_requests_total{method="GET",route="/api/{version}/ping",status="200"} 1`)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	tr := NewHTTPTransport(cfg, WithLogger(discard()))

	assert.Equal(t, http.StatusOK, get(tr.Handler(), "/health").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(tr.Handler(), "/health").Code)
}
