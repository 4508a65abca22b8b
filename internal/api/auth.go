package api

import (
	"net/http" // HTTP status codes
	"time"     // Token issue time

	"accrual_system/internal/domain"  // Domain models
	"accrual_system/internal/i18n"    // Message translation
	"accrual_system/internal/service" // Command dispatch
	"accrual_system/internal/session" // Session context
	"accrual_system/internal/utils"   // JWT helpers

	"github.com/gin-gonic/gin" // Gin web framework
)

// Request and Response structs
type RegisterRequest struct {
	Username string `json:"username"`                        // Display name, optional
	Email    string `json:"email" binding:"omitempty,email"` // Unique email
	Password string `json:"password"`                        // Plain password, hashed before storage
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token string      `json:"token"` // JWT token
	User  UserPayload `json:"user"`  // Session user
}

// UserPayload is the public view of a user
type UserPayload struct {
	ID       uint        `json:"id"`       // User id
	Email    string      `json:"email"`    // Email
	Username string      `json:"username"` // Display name
	Role     domain.Role `json:"role"`     // Role
}

// newUserPayload strips the password hash and history from a user
func newUserPayload(u domain.User) UserPayload {
	return UserPayload{ID: u.ID, Email: u.Email, Username: u.Username, Role: u.Role}
}

// issueToken signs a token for the session user and writes the auth response
func issueToken(c *gin.Context, tr *i18n.Translator, secret string, sess *session.Session, status int) {
	u := sess.User()                                                          // Session user
	token, err := utils.GenerateJWT(u.ID, string(u.Role), secret, time.Now()) // Sign the token
	if err != nil {
		respondError(c, tr, err) // Signing failure is a server fault
		return
	}
	c.JSON(status, AuthResponse{Token: token, User: newUserPayload(u)})
}

// RegisterHandler creates an account and logs it in
func RegisterHandler(svc *service.Service, tr *i18n.Translator, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		sess, err := svc.Register(c.Request.Context(), req.Username, req.Email, req.Password) // Register and log in
		if err != nil {
			respondError(c, tr, err) // Duplicate email or empty input
			return
		}
		issueToken(c, tr, secret, sess, http.StatusCreated) // Return token
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(svc *service.Service, tr *i18n.Translator, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		sess, err := svc.Login(c.Request.Context(), req.Email, req.Password) // Authenticate and start accrual
		if err != nil {
			respondError(c, tr, err) // Invalid credentials or suspended
			return
		}
		issueToken(c, tr, secret, sess, http.StatusOK) // Return token
	}
}

// LogoutHandler ends the active session and stops accrual
func LogoutHandler(svc *service.Service, tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Logout(c.Request.Context()); err != nil {
			respondError(c, tr, err) // Store failure
			return
		}
		respondMessage(c, tr, "loggedOut", nil) // Confirm logout
	}
}
