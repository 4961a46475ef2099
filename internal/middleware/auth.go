package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/auth"
)

// Keys set on the gin context by AuthMiddleware.
const (
	ContextAccountID = "accountID"
	ContextUsername  = "username"
)

// AuthMiddleware validates the Authorization bearer token. Unlike the live
// channel, durable-store endpoints never downgrade to anonymous: a missing or
// invalid token is rejected outright.
func AuthMiddleware(manager *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		identity, err := manager.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextAccountID, identity.AccountID)
		c.Set(ContextUsername, identity.Username)
		c.Next()
	}
}
