package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiwipay/internal/platform/config"
	"kiwipay/internal/platform/metrics"
	"kiwipay/internal/platform/policy"
	"kiwipay/internal/platform/policy/policytest"
	"kiwipay/internal/transport/http/middleware"
)

func newTestServer(t *testing.T) (http.Handler, *metrics.Collector) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://payroll.example.co.nz")
	cfg := config.Load()

	registry, err := policy.New([]policy.Table{policytest.Table()}, nil)
	require.NoError(t, err)
	collector := metrics.New()
	return NewRouter(Deps{
		Config:   cfg,
		Logger:   NewLogger(io.Discard, cfg),
		Policies: registry,
		Metrics:  collector,
	}), collector
}

func TestHealthz(t *testing.T) {
	router, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(middleware.HeaderRequestID))
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/payroll/paye", nil)
	req.Header.Set("Origin", "https://payroll.example.co.nz")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://payroll.example.co.nz", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/payroll/paye", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCalculateThroughFullStack(t *testing.T) {
	router, collector := newTestServer(t)

	body := `{
  "employee":    {"id":"emp-1","hourlyRate":"25","employmentType":"salary","taxCode":"M","kiwiSaverEnrolled":true,"kiwiSaverRate":"3"},
  "period":      "fortnightly",
  "periodStart": "2024-05-06",
  "periodEnd":   "2024-05-19",
  "payDate": "2024-05-22"
}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/calculate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))

	var env struct {
		Success   bool   `json:"success"`
		RequestID string `json:"requestId"`
		Data      struct {
			NetPay string `json:"netPay"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "1580.66", env.Data.NetPay)
	assert.Equal(t, rec.Header().Get(middleware.HeaderRequestID), env.RequestID)

	snapshot := collector.Snapshot()
	assert.EqualValues(t, 1, snapshot["calculationsTotal"])
}

func TestRunsUnavailableWithoutDatabase(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/runs", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestServer(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.EqualValues(t, 1, env.Data["requestsTotal"])
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}
