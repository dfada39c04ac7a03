package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerCountsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("shop", reg)

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/users/1", "/users/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]float64{}
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1, mf.GetName())
		metric := mf.GetMetric()[0]
		labels := map[string]string{}
		for _, lp := range metric.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		assert.Equal(t, "/users/{id}", labels["route"])

		switch mf.GetName() {
		case "shop_http_requests_total":
			assert.Equal(t, "404", labels["status"])
			byName[mf.GetName()] = metric.GetCounter().GetValue()
		case "shop_http_request_duration_seconds":
			byName[mf.GetName()] = float64(metric.GetHistogram().GetSampleCount())
		}
	}
	assert.Equal(t, map[string]float64{
		"shop_http_requests_total":           2,
		"shop_http_request_duration_seconds": 2,
	}, byName)
}
