package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LoggingMiddleware logs HTTP requests and responses
type LoggingMiddleware struct {
	logger    *logrus.Logger
	skipPaths map[string]bool
}

// LoggingOption configures the logging middleware
type LoggingOption func(*LoggingMiddleware)

// WithSkipPaths excludes noisy paths such as health checks from request logs
func WithSkipPaths(paths ...string) LoggingOption {
	return func(m *LoggingMiddleware) {
		for _, p := range paths {
			m.skipPaths[p] = true
		}
	}
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger *logrus.Logger, opts ...LoggingOption) *LoggingMiddleware {
	m := &LoggingMiddleware{
		logger:    logger,
		skipPaths: make(map[string]bool),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// RequestID assigns each request a unique ID, honoring X-Request-ID when
// the caller supplies one
func (m *LoggingMiddleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// Logger returns a gin middleware function for logging requests
func (m *LoggingMiddleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if m.skipPaths[path] {
			return
		}

		if raw != "" {
			path = path + "?" + raw
		}

		latency := time.Since(start)
		status := c.Writer.Status()

		entry := m.logger.WithFields(logrus.Fields{
			"status":     status,
			"method":     c.Request.Method,
			"path":       path,
			"client_ip":  c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"request_id": c.GetString("request_id"),
		})

		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}
