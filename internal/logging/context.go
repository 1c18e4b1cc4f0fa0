package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Keys under which middleware stores per-request values on the gin context.
const (
	RequestIDKey = "request_id"
	StartTimeKey = "start_time"
	StreamIDKey  = "stream_id"
)

func withGinContext(c *gin.Context, e *zerolog.Event) *zerolog.Event {
	if c == nil {
		return e
	}
	if s := c.GetString(RequestIDKey); s != "" {
		e.Str("request_id", s)
	}
	if s := c.GetString(StreamIDKey); s != "" {
		e.Str("stream_id", s)
	}
	if v, ok := c.Get(StartTimeKey); ok {
		if t, ok2 := v.(time.Time); ok2 {
			e.Dur("duration", time.Since(t))
		}
	}
	return e
}

func Info(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Info()) }
func Debug(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Debug()) }
func Warn(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Warn()) }
func Error(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Error()) }
