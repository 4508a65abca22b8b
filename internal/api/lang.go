package api

import (
	"net/http" // HTTP status codes

	"accrual_system/internal/i18n" // Message translation

	"github.com/gin-gonic/gin" // Gin web framework
)

// GetLangHandler returns the active display language
func GetLangHandler(tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"lang": tr.Lang()})
	}
}

// SetLangHandler switches the display language, falling back to the default for unknown tags
func SetLangHandler(tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang, err := tr.Load(c.Request.Context(), c.Param("tag")) // Load and persist the language
		if err != nil {
			respondError(c, tr, err) // Store failure
			return
		}
		c.JSON(http.StatusOK, gin.H{"lang": lang})
	}
}
