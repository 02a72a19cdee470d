package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veris-salud/agenda-web/internal/http/handlers"
	httpmiddleware "github.com/veris-salud/agenda-web/internal/http/middleware"
	"github.com/veris-salud/agenda-web/internal/live"
	"github.com/veris-salud/agenda-web/internal/observability/metrics"
	"github.com/veris-salud/agenda-web/internal/scheduling"
	"github.com/veris-salud/agenda-web/pkg/logging"
)

func newTestRouter(t *testing.T, limiter *httpmiddleware.RateLimiter) http.Handler {
	t.Helper()

	logger := logging.Default()
	reg := prometheus.NewRegistry()
	pm := metrics.NewPageMetrics(reg)

	liveHandler := live.NewHandler(live.Deps{
		Settings: live.Settings{MaxYear: scheduling.MaxYear, SlotMinutes: 30},
		Store:    scheduling.NewMemoryStateStore(0),
		Metrics:  pm,
		Logger:   logger,
	}, nil)

	return New(&Config{
		Logger:         logger,
		Live:           liveHandler,
		Validation:     handlers.NewValidationHandler(pm, logger),
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RateLimiter:    limiter,
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.EqualValues(t, 0, resp["sessions"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRouterShimScript(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, ShimPath, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "javascript")
	assert.Contains(t, rr.Body.String(), "cambiarMes")
}

func TestRouterValidationAndMetrics(t *testing.T) {
	router := newTestRouter(t, nil)

	form := url.Values{"Cedula": {"1710034064"}}
	req := httptest.NewRequest(http.MethodPost, "/api/validate/paciente", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp handlers.ValidationResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.False(t, resp.Valid)
	assert.Equal(t, "Cedula", resp.Field)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `veris_validation_requests_total{gate="paciente",result="invalid"} 1`)
}

func TestRouterValidationRateLimited(t *testing.T) {
	limiter := httpmiddleware.NewRateLimiter(0.001, 1)
	t.Cleanup(limiter.Stop)
	router := newTestRouter(t, limiter)

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/validate/medico", strings.NewReader("Nombre=Dr%2Fa.+Ana+Ruiz"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "10.0.0.9:5000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
}

func TestRouterWithoutLiveHandler(t *testing.T) {
	router := New(&Config{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
