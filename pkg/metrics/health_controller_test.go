package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthController(t *testing.T) {
	cases := []struct {
		name   string
		master Pinger
		status int
		body   string
	}{
		{name: "healthy", master: pingerFunc(func(context.Context) error { return nil }), status: http.StatusOK, body: `{"status":"ok","master":"ok","tenant_pools":3}`},
		{name: "master down", master: pingerFunc(func(context.Context) error { return errors.New("refused") }), status: http.StatusServiceUnavailable, body: `{"status":"degraded","master":"unreachable","tenant_pools":3}`},
		{name: "no master", status: http.StatusOK, body: `{"status":"ok","master":"unconfigured","tenant_pools":3}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := mux.NewRouter()
			(&HealthController{master: tc.master, pools: func() int { return 3 }}).Register(r)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, tc.status, rec.Code)
			require.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}

func TestPrometheusController(t *testing.T) {
	r := mux.NewRouter()
	NewPrometheusController("").Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/prometheus", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
