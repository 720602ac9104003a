// Package middleware holds the gin.HandlerFunc chain installed ahead of
// every route (cmd/server's setupRouter installs otelgin + Recovery +
// Logger, in that order so a span exists before recovery runs and recovery
// runs before the request is logged).
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/diagramforge/core/internal/httpapi/dto"
)

// Recovery turns a panic anywhere downstream into a 500 INTERNAL response
// instead of killing the connection, matching §7's "any unexpected
// exception... returned as 500".
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				ctx := c.Request.Context()
				slog.ErrorContext(ctx, "panic recovered", "error", r, "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
					Error: dto.ErrorDetail{Kind: "INTERNAL", Message: "internal server error"},
				})
			}
		}()
		c.Next()
	}
}

// Logger logs one structured line per request at completion. The pipeline
// generates its own request id per call (it isn't client-suppliable, unlike
// a client-suppliable trace header), so this middleware logs only what gin
// itself knows about the request/response, and per-request correlation
// comes from the request_id the handler logs once Generate returns.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		slog.InfoContext(ctx, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
