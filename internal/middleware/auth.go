package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sudohumans/api/internal/security"
)

const claimsKey = "session_claims"

// Auth extracts the bearer token, verifies signature and expiry, and stores
// the claims on the context. Any failure aborts the request with a generic
// 403; the downstream handler never runs.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authorized"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseToken(tokenStr, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authorized"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAdmin allows the request through only when the verified token's
// username claim matches the configured admin account. The failure path is
// terminal.
func RequireAdmin(adminUsername string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := SessionClaims(c)
		if !ok || claims.Username != adminUsername {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authorized"})
			return
		}
		c.Next()
	}
}

// SessionClaims returns the verified token claims set by Auth.
func SessionClaims(c *gin.Context) (*security.Claims, bool) {
	val, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := val.(*security.Claims)
	return claims, ok && claims != nil
}
