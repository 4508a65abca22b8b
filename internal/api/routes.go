package api

import (
	"accrual_system/internal/i18n"       // Message translation
	"accrual_system/internal/ledger"     // Ledger store
	"accrual_system/internal/middleware" // Auth middleware
	"accrual_system/internal/service"    // Command dispatch

	"github.com/gin-gonic/gin" // Gin web framework
)

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r gin.IRouter, svc *service.Service, store *ledger.Store, tr *i18n.Translator, secret string) {
	auth := middleware.JWTAuthMiddleware(secret, svc) // Token must name the session user

	// Auth routes
	r.POST("/user", RegisterHandler(svc, tr, secret))  // Registration endpoint
	r.POST("/session", LoginHandler(svc, tr, secret))  // Login endpoint
	r.DELETE("/session", auth, LogoutHandler(svc, tr)) // Logout endpoint

	// Language routes
	r.GET("/lang", GetLangHandler(tr))      // Active language
	r.PUT("/lang/:tag", SetLangHandler(tr)) // Switch language

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	walletGroup.Use(auth)
	walletGroup.GET("", GetWalletHandler(svc, tr))                   // Dashboard endpoint
	walletGroup.POST("", CreateWalletHandler(svc, tr))               // Add wallet endpoint
	walletGroup.DELETE("/:address", DeleteWalletHandler(svc, tr))    // Delete wallet endpoint
	walletGroup.POST("/:address/withdraw", WithdrawHandler(svc, tr)) // Withdraw endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(auth, middleware.AdminOnlyMiddleware(store))
	adminGroup.GET("/users", ListUsersHandler(svc, tr))                // List users endpoint
	adminGroup.POST("/users/:id/suspend", SuspendUserHandler(svc, tr)) // Toggle suspension endpoint
	adminGroup.DELETE("/users/:id", DeleteUserHandler(svc, tr))        // Delete user endpoint
	adminGroup.PUT("/users/:id/balance", SetBalanceHandler(svc, tr))   // Balance override endpoint
}
