package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CyberDuck79/fullstack-template/internal/infra/security"
	"github.com/CyberDuck79/fullstack-template/internal/transport/http/middleware"
	"github.com/CyberDuck79/fullstack-template/internal/usecase"
)

// EmailHandler exposes the email confirmation flow.
type EmailHandler struct {
	verification *usecase.EmailVerificationService
}

// NewEmailHandler constructs EmailHandler.
func NewEmailHandler(verification *usecase.EmailVerificationService) *EmailHandler {
	return &EmailHandler{verification: verification}
}

// Confirm godoc
// @Summary Redeem a verification token
// @Tags Email confirmation
// @Accept json
// @Produce json
// @Param request body ConfirmEmailRequest true "Verification token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /email-confirmation/confirm [post]
func (h *EmailHandler) Confirm(c *gin.Context) {
	var req ConfirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "verification token is required"))
		return
	}

	if err := h.verification.Confirm(c.Request.Context(), req.Token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: security.ErrTokenExpired, Status: http.StatusBadRequest, Message: "verification token expired"},
			{Err: security.ErrTokenInvalid, Status: http.StatusBadRequest, Message: "invalid verification token"},
			{Err: usecase.ErrAlreadyConfirmed, Status: http.StatusBadRequest, Message: "email already confirmed"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "email confirmation failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "email confirmed"})
}

// Resend godoc
// @Summary Resend the confirmation link
// @Tags Email confirmation
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /email-confirmation/resend-confirmation-link [post]
func (h *EmailHandler) Resend(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.verification.Resend(c.Request.Context(), userID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAlreadyConfirmed, Status: http.StatusBadRequest, Message: "email already confirmed"},
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "resend failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "confirmation link sent"})
}
