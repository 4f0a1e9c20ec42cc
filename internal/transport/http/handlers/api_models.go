package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CyberDuck79/fullstack-template/internal/core/domain"
	"github.com/CyberDuck79/fullstack-template/internal/infra/security"
	"github.com/CyberDuck79/fullstack-template/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with the request id for
// correlation.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response bound to the request.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: middleware.GetRequestID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest defines the payload for account registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest defines the payload for password login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest defines the payload for profile updates.
type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// ConfirmEmailRequest carries the verification token.
type ConfirmEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// AuthenticationResponse is the payload of every successful login, OAuth,
// and refresh call. Expirations are absolute RFC3339 timestamps.
type AuthenticationResponse struct {
	Authentication         string `json:"authentication"`
	Refresh                string `json:"refresh"`
	AccessTokenExpiration  string `json:"accessTokenExpiration"`
	RefreshTokenExpiration string `json:"refreshTokenExpiration"`
}

// NewAuthenticationResponse maps a token pair to the response payload.
func NewAuthenticationResponse(pair *security.TokenPair) AuthenticationResponse {
	return AuthenticationResponse{
		Authentication:         pair.AccessToken,
		Refresh:                pair.RefreshToken,
		AccessTokenExpiration:  pair.AccessExpiresAt.UTC().Format(time.RFC3339),
		RefreshTokenExpiration: pair.RefreshExpiresAt.UTC().Format(time.RFC3339),
	}
}

// UserResponse describes the public view of an account.
type UserResponse struct {
	ID               int64     `json:"id"`
	ExternalID       *int64    `json:"externalId,omitempty"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	IsEmailConfirmed bool      `json:"isEmailConfirmed"`
	RegisteredAt     time.Time `json:"registeredAt"`
}

// NewUserResponse maps a sanitized user to the response payload.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:               user.ID,
		ExternalID:       user.ExternalID,
		Email:            user.Email,
		Name:             user.Name,
		IsEmailConfirmed: user.IsEmailConfirmed,
		RegisteredAt:     user.RegisteredAt,
	}
}

// setSessionCookies attaches both HttpOnly cookie directives to the response.
func setSessionCookies(c *gin.Context, pair *security.TokenPair) {
	c.Writer.Header().Add("Set-Cookie", pair.AccessCookie)
	c.Writer.Header().Add("Set-Cookie", pair.RefreshCookie)
}
