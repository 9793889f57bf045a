// Package auth guards the API surface with a shared key check.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"personal-organizer/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// APIKeyMiddleware validates the API key from request headers. The key
// comes from X-API-Key or, as a fallback, "Authorization: ApiKey <key>".
// An empty configured key rejects everything.
func APIKeyMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "ApiKey ") {
				apiKey = strings.TrimPrefix(authHeader, "ApiKey ")
			}
		}

		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_API_KEY",
					"message": "API key is required. Provide X-API-Key header or Authorization: ApiKey <key>",
				},
			})
			return
		}

		configured := cfg.External.APIKey
		if configured == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(configured)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_API_KEY",
					"message": "Invalid API key provided",
				},
			})
			return
		}

		c.Next()
	}
}
