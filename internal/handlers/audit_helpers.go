package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messenger-service/internal/middleware"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// accountID returns the authenticated account id set by the auth middleware.
func accountID(c *gin.Context) int64 {
	return c.GetInt64(middleware.ContextAccountID)
}

// username returns the authenticated display name set by the auth middleware.
func username(c *gin.Context) string {
	return c.GetString(middleware.ContextUsername)
}

func accountIDFromContext(c *gin.Context) *int64 {
	if id := c.GetInt64(middleware.ContextAccountID); id != 0 {
		return &id
	}
	return nil
}

// parseID reads a path parameter as an int64, replying 400 on failure.
func parseID(c *gin.Context, param, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + label})
		return 0, false
	}
	return id, true
}
