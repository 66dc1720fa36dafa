package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/salvo/service"
)

// SessionMiddleware requires an active wallet session and exposes its
// address to downstream handlers.
func SessionMiddleware(sessions *service.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := sessions.Load(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
			return
		}
		if session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not connected"})
			return
		}

		c.Set("userAddress", session.Address)
		c.Next()
	}
}
