package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes

	"accrual_system/internal/domain"     // Domain errors
	"accrual_system/internal/i18n"       // Message translation
	"accrual_system/internal/middleware" // Context keys
	"accrual_system/internal/session"    // Session context

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
)

// errorMapping pairs a domain error with its HTTP status and message key
type errorMapping struct {
	err    error  // Sentinel to match
	status int    // Response status
	key    string // Translation key
}

// errorTable is checked in order; the first match wins
var errorTable = []errorMapping{
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalidCredentials"},
	{domain.ErrAccountSuspended, http.StatusForbidden, "accountSuspended"},
	{domain.ErrDuplicateEmail, http.StatusConflict, "emailExists"},
	{domain.ErrInvalidAddressFormat, http.StatusBadRequest, "invalidBtcAddress"},
	{domain.ErrDuplicateAddress, http.StatusConflict, "duplicateAddress"},
	{domain.ErrBelowWithdrawalMinimum, http.StatusBadRequest, "withdrawalMinWarning"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "invalidBalance"},
	{domain.ErrPrivilegedTargetRejected, http.StatusForbidden, "adminImmune"},
	{domain.ErrForbidden, http.StatusForbidden, "adminRequired"},
	{domain.ErrRecordNotFound, http.StatusNotFound, "notFound"},
	{domain.ErrNoSession, http.StatusUnauthorized, "loginRequired"},
	{domain.ErrAborted, http.StatusBadRequest, "aborted"},
	{domain.ErrStaleWrite, http.StatusConflict, "conflict"},
}

// respondError writes a translated error response for err
func respondError(c *gin.Context, tr *i18n.Translator, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": tr.Translate(m.key), "code": m.key})
			return
		}
	}
	// Anything unmapped is a server fault
	logrus.WithFields(logrus.Fields{
		"request_id": c.GetString("requestID"), // Request id
		"path":       c.FullPath(),             // Route pattern
	}).WithError(err).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": tr.Translate("serverError"), "code": "serverError"})
}

// respondMessage writes a translated success message with optional extra fields
func respondMessage(c *gin.Context, tr *i18n.Translator, key string, extra gin.H) {
	body := gin.H{"message": tr.Translate(key)} // Translated message
	for k, v := range extra {
		body[k] = v // Merge extra fields
	}
	c.JSON(http.StatusOK, body)
}

// currentSession returns the session bound by the JWT middleware
func currentSession(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(middleware.SessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok
}

// requireSession loads the bound session or writes a loginRequired response
func requireSession(c *gin.Context, tr *i18n.Translator) (*session.Session, bool) {
	sess, ok := currentSession(c)
	if !ok {
		respondError(c, tr, domain.ErrNoSession)
		return nil, false
	}
	return sess, true
}
