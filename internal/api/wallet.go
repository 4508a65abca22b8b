package api

import (
	"net/http" // HTTP status codes

	"accrual_system/internal/i18n"    // Message translation
	"accrual_system/internal/service" // Command dispatch

	"github.com/gin-gonic/gin" // Gin web framework
)

// Request struct for adding a wallet
type AddWalletRequest struct {
	Address string `json:"address"` // BTC address, validated by the service
}

// GetWalletHandler returns the session user's dashboard
func GetWalletHandler(svc *service.Service, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := requireSession(c, tr) // Session bound by the JWT middleware
		if !ok {
			return
		}
		c.JSON(http.StatusOK, svc.Dashboard(sess)) // Latest cached state
	}
}

// CreateWalletHandler adds a wallet address for the session user
func CreateWalletHandler(svc *service.Service, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := requireSession(c, tr) // Session bound by the JWT middleware
		if !ok {
			return
		}
		var req AddWalletRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if _, err := svc.AddWallet(c.Request.Context(), sess, req.Address); err != nil {
			respondError(c, tr, err) // Invalid, duplicate, or empty address
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": tr.Translate("addressAdded"), "dashboard": svc.Dashboard(sess)})
	}
}

// DeleteWalletHandler removes a wallet from the session user
func DeleteWalletHandler(svc *service.Service, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := requireSession(c, tr) // Session bound by the JWT middleware
		if !ok {
			return
		}
		address := c.Param("address") // Wallet to delete
		if _, err := svc.DeleteWallet(c.Request.Context(), sess, address); err != nil {
			respondError(c, tr, err) // Unknown wallet
			return
		}
		respondMessage(c, tr, "walletDeleted", gin.H{"dashboard": svc.Dashboard(sess)})
	}
}

// WithdrawHandler empties a wallet whose balance meets the minimum
func WithdrawHandler(svc *service.Service, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := requireSession(c, tr) // Session bound by the JWT middleware
		if !ok {
			return
		}
		address := c.Param("address") // Wallet to withdraw from
		if _, err := svc.Withdraw(c.Request.Context(), sess, address); err != nil {
			respondError(c, tr, err) // Below minimum or unknown wallet
			return
		}
		respondMessage(c, tr, "withdrawalSuccess", gin.H{"dashboard": svc.Dashboard(sess)})
	}
}
