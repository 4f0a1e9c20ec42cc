package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CyberDuck79/fullstack-template/internal/infra/security"
	"github.com/CyberDuck79/fullstack-template/internal/repository"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or
// falls back to a generic response. Duplicate-field and password-policy
// violations are handled before the sentinel table because they carry
// payload-specific detail.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var dup *repository.DuplicateFieldError
	if errors.As(err, &dup) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, fmt.Sprintf("%s already in use", dup.Field)))
		return
	}

	var policy *security.PasswordValidationError
	if errors.As(err, &policy) {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, policy.Message))
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
