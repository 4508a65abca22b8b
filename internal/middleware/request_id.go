package middleware

import (
	"time" // Request latency

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Request identifiers
	"github.com/sirupsen/logrus" // Structured logging
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id and logs its outcome
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader) // Reuse a caller-supplied id
		if id == "" {
			id = uuid.NewString() // Otherwise generate one
		}
		c.Set("requestID", id)        // Store id in context
		c.Header(RequestIDHeader, id) // Echo id to the caller
		start := time.Now()           // Start of handling
		c.Next()                      // Run the handlers
		logrus.WithFields(logrus.Fields{
			"request_id": id,                         // Request id
			"method":     c.Request.Method,           // HTTP method
			"path":       c.FullPath(),               // Route pattern
			"status":     c.Writer.Status(),          // Response status
			"latency":    time.Since(start).String(), // Handling time
		}).Info("Request handled")
	}
}
