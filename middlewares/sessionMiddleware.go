package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/invoice_backend/config"
	"github.com/mmdatafocus/invoice_backend/utils"
)

// SessionMiddleware rejects tokens that were signed out before they expired.
// It runs after AuthMiddleware. Without Redis every token is accepted.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := utils.GetTokenFromContext(c.Request.Context())
		if !ok || token == "" {
			c.Next()
			return
		}
		revoked, err := utils.IsTokenRevoked(c.Request.Context(), token)
		if err != nil {
			config.LogError(config.GetLogger(), "middlewares", "SessionMiddleware", "check revoked token", nil, err)
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// CorrelationMiddleware tags the request context with x-correlation-id, or
// a fresh id when the caller sent none.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = utils.NewCorrelationId()
		}
		c.Header("x-correlation-id", cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}
