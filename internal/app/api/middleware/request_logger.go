package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/pointsledger/pkg/logctx"
)

// RequestLoggerMiddleware attaches a request-scoped logger enriched with
// trace_id to gin.Context and request context. Auth middleware later adds
// user_id to the same logger.
func RequestLoggerMiddleware(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetString(logctx.TraceIDKey)

		reqLogger := base.With("trace_id", traceID)
		setLogger(c, reqLogger)

		// mirror trace id to response header when available
		if traceID != "" {
			c.Writer.Header().Set(headerRequestID, traceID)
		}

		c.Next()
	}
}

func setLogger(c *gin.Context, lg *zap.SugaredLogger) {
	c.Set(logctx.LoggerKey, lg)
	c.Request = c.Request.WithContext(logctx.WithLogger(c.Request.Context(), lg))
}
