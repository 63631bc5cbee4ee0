package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hermes-backend/models"
)

// respondError maps the error taxonomy onto the JSON error envelope.
// action names the failed operation in 500 messages, e.g. "creating".
func respondError(c *gin.Context, v models.Variant, action string, err error) {
	noun := v.Noun
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": validationMessage(err)})
	case errors.Is(err, models.ErrUnsupported):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": noun + " not found"})
	case errors.Is(err, models.ErrDuplicateKey):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": fmt.Sprintf("%s with this %s already exists", noun, strings.ToUpper(v.KeyField)),
		})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("Error %s %s", action, strings.ToLower(noun)),
			"error":   err.Error(),
		})
	}
}

// validationMessage keeps what follows the taxonomy prefix, so wrapping
// errors such as services.CommandError do not leak into the message.
func validationMessage(err error) string {
	msg := err.Error()
	prefix := models.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
