package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sudohumans/api/internal/service"
	"sudohumans/api/internal/validation"
)

// Authenticate verifies a username/password pair and responds with a signed
// session token. Bad credentials are a terminal 403.
func (h HandlerSet) Authenticate(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}

	errs := validation.Apply(c.Request.Context(), body,
		validation.Field("username",
			validation.Required("Name is required.")),
		validation.Field("password",
			validation.Required("Password is required.")),
	)
	if len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	username, _ := body["username"].(string)
	password, _ := body["password"].(string)

	token, err := h.auth.Login(c.Request.Context(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			problem(c, http.StatusForbidden, gin.H{"error": "not authorized"})
		case errors.Is(err, service.ErrTooManyAttempts):
			problem(c, http.StatusTooManyRequests, gin.H{"error": "too many failed attempts"})
		default:
			h.log.Error().Err(err).Str("username", username).Msg("authenticate failed")
			problem(c, http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
