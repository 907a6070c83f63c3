package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/wms-imagery/pkg/config"
	"github.com/noah-isme/wms-imagery/pkg/middleware/requestid"
)

func TestNewHonoursLevel(t *testing.T) {
	cfg := &config.Config{Env: config.EnvProduction, Log: config.LogConfig{Level: "warn", Format: "json"}}
	l, err := New(cfg)
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNewConsoleFallsBackToInfoOnBadLevel(t *testing.T) {
	cfg := &config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: "chatty"}}
	l, err := NewConsole(cfg)
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.InfoLevel))
	require.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestConsoleConfigWritesToStdout(t *testing.T) {
	cfg := &config.Config{Env: config.EnvProduction}
	require.Equal(t, []string{"stdout"}, consoleConfig(cfg).OutputPaths)
	require.Equal(t, "console", consoleConfig(cfg).Encoding)
	require.Equal(t, []string{"stderr"}, zapConfig(cfg, "json").OutputPaths)
}

func TestGinMiddlewareLogsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	r := gin.New()
	r.Use(requestid.Middleware())
	r.Use(GinMiddleware(zap.New(core)))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "http_request", entry.Message)
	fields := entry.ContextMap()
	require.Equal(t, "/health", fields["path"])
	require.Equal(t, int64(http.StatusOK), fields["status"])
	require.Equal(t, "req-1", fields["request_id"])
}

func TestGinMiddlewareLevelsByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)

	r := gin.New()
	r.Use(GinMiddleware(zap.New(core)))
	r.GET("/downloads/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/downloads/missing", "/boom"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 2, logs.Len())
	require.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	require.Equal(t, "/downloads/:id", logs.All()[0].ContextMap()["route"])
	require.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}
