package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wms-imagery/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("connection refused") }

	h := NewMetricsHandler(nil, map[string]ReadinessCheck{"redis": ok})
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, map[string]ReadinessCheck{"redis": ok, "postgres": down})
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMetricsHandler(service.NewMetricsService(), nil)
	c, w := newGinContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "goroutines_total"))

}

func TestMetricsHandlerPrometheusThroughRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.ObserveFetch(service.FetchOutcomeSaved, 0, 128)

	router := gin.New()
	router.GET("/metrics", NewMetricsHandler(metrics, nil).Prometheus)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "wms_tiles_saved_bytes_total 128")

	router = gin.New()
	router.GET("/metrics", NewMetricsHandler(nil, nil).Prometheus)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
