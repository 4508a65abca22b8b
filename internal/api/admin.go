package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"accrual_system/internal/domain"  // Domain errors
	"accrual_system/internal/i18n"    // Message translation
	"accrual_system/internal/service" // Command dispatch

	"github.com/gin-gonic/gin" // Gin web framework
)

// Request struct for a balance override
type SetBalanceRequest struct {
	Amount string `json:"amount" binding:"required"` // Decimal text, validated by the mutator
}

// queryInt reads a positive integer query parameter with a default
func queryInt(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil && v > 0 {
		return v // Use valid value
	}
	return def // Fall back to default
}

// targetID parses the :id path parameter
func targetID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64) // Parse user id
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ListUsersHandler returns a page of users with their balances
func ListUsersHandler(svc *service.Service, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := requireSession(c, tr) // Session bound by the JWT middleware
		if !ok {
			return
		}
		users, err := svc.ListUsers(c.Request.Context(), sess) // Full listing
		if err != nil {
			respondError(c, tr, err) // Not an admin or store failure
			return
		}
		page := queryInt(c, "page", 1)           // Requested page
		pageSize := queryInt(c, "page_size", 20) // Requested page size
		if pageSize > 100 {
			pageSize = 100 // Max page size limit
		}
		total := len(users)                             // Total number of users
		totalPages := (total + pageSize - 1) / pageSize // Calculate total pages
		start := min((page-1)*pageSize, total)          // First row of the page
		end := min(start+pageSize, total)               // Past the last row
		c.JSON(http.StatusOK, gin.H{
			"users":       users[start:end], // Page of users
			"page":        page,             // Current page
			"page_size":   pageSize,         // Page size
			"total":       total,            // Total number of users
			"total_pages": totalPages,       // Total pages
		})
	}
}

// SuspendUserHandler toggles suspension of a non-admin user
func SuspendUserHandler(svc *service.Service, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := requireSession(c, tr) // Session bound by the JWT middleware
		if !ok {
			return
		}
		id, ok := targetID(c) // Target user
		if !ok {
			respondError(c, tr, domain.ErrRecordNotFound)
			return
		}
		suspended, err := svc.SuspendUser(c.Request.Context(), sess, id) // Toggle suspension
		if err != nil {
			respondError(c, tr, err) // Admin target or unknown user
			return
		}
		key := "userActivated" // Message for re-activation
		if suspended {
			key = "userSuspended" // Message for suspension
		}
		respondMessage(c, tr, key, gin.H{"suspended": suspended})
	}
}

// DeleteUserHandler removes a non-admin user
func DeleteUserHandler(svc *service.Service, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := requireSession(c, tr) // Session bound by the JWT middleware
		if !ok {
			return
		}
		id, ok := targetID(c) // Target user
		if !ok {
			respondError(c, tr, domain.ErrRecordNotFound)
			return
		}
		if err := svc.DeleteUser(c.Request.Context(), sess, id); err != nil {
			respondError(c, tr, err) // Admin target or unknown user
			return
		}
		respondMessage(c, tr, "userDeleted", nil)
	}
}

// SetBalanceHandler force-sets a non-admin user's first wallet balance
func SetBalanceHandler(svc *service.Service, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := requireSession(c, tr) // Session bound by the JWT middleware
		if !ok {
			return
		}
		id, ok := targetID(c) // Target user
		if !ok {
			respondError(c, tr, domain.ErrRecordNotFound)
			return
		}
		var req SetBalanceRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, tr, domain.ErrInvalidAmount) // Missing amount
			return
		}
		u, err := svc.SetBalance(c.Request.Context(), sess, id, req.Amount) // Override balance
		if err != nil {
			respondError(c, tr, err) // Invalid amount, admin target, or unknown user
			return
		}
		respondMessage(c, tr, "balanceUpdated", gin.H{"totalBalance": u.TotalBalance()})
	}
}
