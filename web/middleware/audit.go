package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/userhub/userhub/logger"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// AuditMiddleware tags every request with an id (taken from X-Request-ID or generated) and
// logs one line per request once the handler chain has finished.
func AuditMiddleware(skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if shouldSkipAudit(path, skipPaths) {
			return
		}

		status := c.Writer.Status()
		line := "[%s] %s %s %d %s ip=%s"
		args := []any{requestID, c.Request.Method, path, status, time.Since(start), c.ClientIP()}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Warningf(line, args...)
		default:
			logger.Debugf(line, args...)
		}
	}
}

// GetRequestID returns the id assigned by AuditMiddleware, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func shouldSkipAudit(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if len(path) >= len(skipPath) && path[:len(skipPath)] == skipPath {
			return true
		}
	}
	return false
}
