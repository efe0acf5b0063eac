package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger returns a Gin middleware that logs each request with zap. Server
// errors log at error level, rejected requests at warn.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := zapcore.InfoLevel
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("trace_id", GetTraceID(c)),
			zap.String("client_ip", c.ClientIP()),
		}
		if id := GetAccountID(c); id != 0 {
			fields = append(fields, zap.Int64("account_id", id))
		}
		if kind := c.GetString(ErrorKindKey); kind != "" {
			fields = append(fields, zap.String("error_kind", kind))
		}
		if ce := log.Check(level, "http"); ce != nil {
			ce.Write(fields...)
		}
	}
}
