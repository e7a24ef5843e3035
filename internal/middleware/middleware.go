// Package middleware holds the gin middleware chain shared by every API route.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	claimsKey    = "claims"
)

// abort ends the request with the API's error envelope.
func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success":   false,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}

// RequestIDFrom returns the id assigned by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
