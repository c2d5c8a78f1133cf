package middleware

import (
	"github.com/gin-gonic/gin"
)

// ClientIP identifies the caller for rate limiting. Forwarding headers only
// count when the peer is one of the engine's trusted proxies.
func ClientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
