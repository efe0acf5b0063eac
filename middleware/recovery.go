package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery returns a Gin middleware that catches panics, logs them, and
// answers with the internal error body.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					zap.Any("error", r),
					zap.String("trace_id", GetTraceID(c)),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				AbortError(c, fmt.Errorf("panic: %v", r))
			}
		}()
		c.Next()
	}
}
