package rest

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID tags the request with a server-side correlation id, reusing the
// caller's X-Request-ID when present. Unrelated to the client's requestId
// field, which is only echoed in the envelope.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(common.RequestIDHeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(common.RequestIDHeaderName, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// AccessLog writes one entry per request.
func AccessLog(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		ctx := c.Request.Context()
		args := []any{
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			log.Error(ctx, "request failed", append(args, "errors", c.Errors.String())...)
			return
		}
		log.Info(ctx, "request completed", args...)
	}
}

// Recovery turns a panic into a 500 envelope. The envelope echoes the
// requestId query parameter; a body-carried requestId is already consumed.
func Recovery(log logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error(c.Request.Context(), "panic in handler", "panic", recovered, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
			Message:   "Internal server error.",
			RequestID: queryRequestID(c),
		})
	})
}
