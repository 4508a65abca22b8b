package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"accrual_system/internal/session" // Session context
	"accrual_system/internal/utils"   // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// Context keys set by the middleware
const (
	UserIDKey  = "userID"  // Authenticated user id
	SessionKey = "session" // Active *session.Session
)

// SessionSource exposes the process's active session
type SessionSource interface {
	Current() (*session.Session, error)
}

// JWTAuthMiddleware validates JWT tokens and binds the request to the active session
func JWTAuthMiddleware(secret string, sessions SessionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string and parse it
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			// If parsing fails, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		sess, err := sessions.Current() // The session this process is acting for
		// Tokens for any user other than the current session user are rejected
		if err != nil || sess.UserID() != claims.UserID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session is not active"})
			return
		}
		c.Set(UserIDKey, claims.UserID) // Store userID in context
		c.Set(SessionKey, sess)         // Store session in context
		c.Next()                        // Proceed to the next handler
	}
}
