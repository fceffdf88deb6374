package middleware

import (
	"context"
	"time"

	"academic-scheduler/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	ContextRequestID = "request_id"
	RequestIDHeader  = "X-Request-ID"
)

// Logger tags each request with an id, echoed in X-Request-ID, and logs its outcome.
// Health probes are logged at debug level.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestID, requestID)
		c.Header(RequestIDHeader, requestID)

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		logFields := logrus.Fields{
			"request_id":  requestID,
			"status_code": status,
			"latency":     time.Since(start),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		}
		if route := c.FullPath(); route != "" {
			logFields["route"] = route
		}
		if subject := c.GetString(ContextUserID); subject != "" {
			logFields["subject"] = subject
		}

		entry := logger.WithFields(logFields)
		switch {
		case len(c.Errors) > 0:
			entry.WithField("error", c.Errors.String()).Error("Request completed with errors")
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		case c.FullPath() == "/health" || c.FullPath() == "/ready" || c.FullPath() == "/live":
			entry.Debug("Request completed")
		default:
			entry.Info("Request completed")
		}
	}
}

// RequestTimeout bounds the context handed to services; storage calls give up at the deadline.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
