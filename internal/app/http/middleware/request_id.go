package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-Id"
	requestLogKey   = "requestLogger"
)

// RequestID propagates an incoming request id or generates one, and stores
// a logrus entry carrying it for downstream handlers.
func RequestID(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Set(requestLogKey, log.WithField("request_id", requestID))
		c.Next()
	}
}

// RequestLogger returns the per-request log entry, falling back to the
// standard logger when the middleware did not run.
func RequestLogger(c *gin.Context) *logrus.Entry {
	if value, exists := c.Get(requestLogKey); exists {
		if entry, ok := value.(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
