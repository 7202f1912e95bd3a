package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/rts-pathfind/internal/logging"
)

func newRouter(t *testing.T, registry *prometheus.Registry, buf *bytes.Buffer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.Use(NewRequestLogger(logging.NewWriterLogger("api", buf)).Handler())
	promMw := NewPrometheusMiddleware("test", registry)
	r.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(r)

	r.GET("/ok", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/fail", func(c *gin.Context) { c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"}) })
	return r
}

func serve(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestPrometheusMiddleware_BasicMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	r := newRouter(t, registry, &bytes.Buffer{})

	assert.Equal(t, http.StatusOK, serve(r, "/ok").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(r, "/fail").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, "/nope").Code)

	metricFamilies, err := registry.Gather()
	require.NoError(t, err)

	var durationFound, errorsFound bool
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "test_http_request_duration_seconds":
			durationFound = true
			assert.Equal(t, "Длительность HTTP-запросов.", mf.GetHelp())
			assert.Len(t, mf.Metric, 3)
		case "test_http_request_errors_total":
			errorsFound = true
			// 500 и 404 на неизвестном пути
			assert.Len(t, mf.Metric, 2)
		}
	}
	assert.True(t, durationFound, "метрика длительности не найдена")
	assert.True(t, errorsFound, "метрика ошибок не найдена")
}

func TestPrometheusMiddleware_UnmatchedPathLabel(t *testing.T) {
	registry := prometheus.NewRegistry()
	r := newRouter(t, registry, &bytes.Buffer{})

	serve(r, "/random/1")
	serve(r, "/random/2")

	count, err := testutil.GatherAndCount(registry, "test_http_request_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "сырые пути сворачиваются в одну метку")
}

func TestPrometheusMiddleware_InflightReturnsToZero(t *testing.T) {
	registry := prometheus.NewRegistry()
	r := newRouter(t, registry, &bytes.Buffer{})
	serve(r, "/ok")

	expected := `
# HELP test_http_requests_inflight Текущее количество обрабатываемых HTTP-запросов.
# TYPE test_http_requests_inflight gauge
test_http_requests_inflight 0
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_http_requests_inflight"))
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	r := newRouter(t, registry, &bytes.Buffer{})
	serve(r, "/ok")

	w := serve(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_request_duration_seconds")
}

func TestRequestLogger_TraceHeader(t *testing.T) {
	buf := &bytes.Buffer{}
	r := newRouter(t, prometheus.NewRegistry(), buf)

	w := serve(r, "/ok")
	traceID := w.Header().Get("X-Trace-Id")
	require.NotEmpty(t, traceID)
	assert.Contains(t, buf.String(), traceID)

	w = serve(r, "/fail")
	assert.NotEqual(t, traceID, w.Header().Get("X-Trace-Id"), "у каждого запроса свой trace-id")
	assert.Contains(t, buf.String(), "ERROR")
}
