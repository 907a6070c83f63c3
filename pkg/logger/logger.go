package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/wms-imagery/pkg/config"
	"github.com/noah-isme/wms-imagery/pkg/middleware/requestid"
)

// New builds the service logger using LOG_FORMAT.
func New(cfg *config.Config) (*zap.Logger, error) {
	return zapConfig(cfg, cfg.Log.Format).Build()
}

// NewConsole is used by the interactive fetcher, where log lines share
// standard output with prompts.
func NewConsole(cfg *config.Config) (*zap.Logger, error) {
	return consoleConfig(cfg).Build()
}

func consoleConfig(cfg *config.Config) zap.Config {
	zapCfg := zapConfig(cfg, "console")
	zapCfg.OutputPaths = []string{"stdout"}
	return zapCfg
}

func zapConfig(cfg *config.Config, format string) zap.Config {
	var zapCfg zap.Config
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch format {
	case "console":
		zapCfg.Encoding = "console"
		zapCfg.DisableStacktrace = true
	default:
		zapCfg.Encoding = "json"
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg
}

// GinMiddleware logs one http_request line per call. Server errors log at
// error level and client errors at warn.
func GinMiddleware(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if route := c.FullPath(); route != "" && route != c.Request.URL.Path {
			fields = append(fields, zap.String("route", route))
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			l.Error("http_request", fields...)
		case status >= 400:
			l.Warn("http_request", fields...)
		default:
			l.Info("http_request", fields...)
		}
	}
}
