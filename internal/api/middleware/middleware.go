package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"waste-ninja-go/internal/logging"
)

const RequestIDHeader = "X-Request-ID"

// Logger writes one structured line per request. Streaming endpoints log when they end.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logging.Error(c)
		case status >= 400:
			event = logging.Warn(c)
		default:
			event = logging.Info(c)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Int("size", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Msg("http_request")
	}
}

func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.Error(c).
			Interface("error", recovered).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("panic_recovered")
		c.AbortWithStatusJSON(500, gin.H{"error": "Internal server error"})
	})
}

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS, HEAD")
		c.Header("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID, X-Requested-With, Origin, Cache-Control, Pragma")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Request-ID, X-Regions-Count")
		c.Header("Access-Control-Max-Age", "86400") // 24 hours

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set(logging.RequestIDKey, requestID)
		c.Next()
	}
}

func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(logging.StartTimeKey, time.Now())
		c.Next()
	}
}
