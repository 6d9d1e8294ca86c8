package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GatewayAuth trusts user info from gateway headers (X-User-ID, X-User-Email, X-User-Role)
// This is used when the Go API runs behind the hosted gateway which handles
// JWT validation and billing checks.
//
// When AUTH_MODE=gateway, the API trusts these headers unconditionally.
// This should ONLY be used in the hosted environment with proper network isolation.
func GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for gateway headers
		userID := c.GetHeader("X-User-ID")
		userEmail := c.GetHeader("X-User-Email")
		userRole := c.GetHeader("X-User-Role")

		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Missing X-User-ID header from gateway",
			})
			c.Abort()
			return
		}

		// Set context values
		c.Set("user_id", userID)
		c.Set("user_email", userEmail)
		c.Set("user_role", userRole)

		// Also set API key info if present
		if apiKeyID := c.GetHeader("X-API-Key-ID"); apiKeyID != "" {
			c.Set("api_key_id", apiKeyID)
			c.Set("api_key_scopes", c.GetHeader("X-API-Key-Scopes"))
		}

		c.Next()
	}
}

// OptionalGatewayAuth is like GatewayAuth but doesn't fail if headers are missing
// Useful for endpoints that support both authenticated and anonymous access
func OptionalGatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
			c.Set("user_email", c.GetHeader("X-User-Email"))
			c.Set("user_role", c.GetHeader("X-User-Role"))
		}

		c.Next()
	}
}

// GetUserID retrieves the user ID set by the auth middleware
// Returns the string ID and a boolean indicating if it was found
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok
}

// GetUserEmail retrieves the user email set by the auth middleware
func GetUserEmail(c *gin.Context) (string, bool) {
	email, exists := c.Get("user_email")
	if !exists {
		return "", false
	}
	e, ok := email.(string)
	return e, ok
}
