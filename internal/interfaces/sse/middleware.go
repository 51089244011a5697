package sse

import "github.com/gin-gonic/gin"

// SSEHeadersMiddleware sets the headers a text/event-stream response needs.
func SSEHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no") // For nginx
		c.Next()
	}
}
