package middleware

import (
	"net/http" // HTTP status codes

	"accrual_system/internal/ledger" // Ledger store

	"github.com/gin-gonic/gin" // Gin web framework
)

// AdminOnlyMiddleware checks the user's role from the ledger on each request
func AdminOnlyMiddleware(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint(UserIDKey) // Get userID from context
		// Check if userID exists in context
		if userID == 0 {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		user, err := store.ReadUser(c.Request.Context(), userID) // Fetch user from the ledger
		// If user not found, any error, or not an admin, abort with forbidden status
		if err != nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
