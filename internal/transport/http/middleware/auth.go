package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CyberDuck79/fullstack-template/internal/core/port"
	"github.com/CyberDuck79/fullstack-template/internal/infra/security"
	"github.com/CyberDuck79/fullstack-template/internal/repository"
	"github.com/CyberDuck79/fullstack-template/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: GetRequestID(c),
	}
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// tokenFromCookieOrBearer prefers the named cookie over the bearer header.
func tokenFromCookieOrBearer(c *gin.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}
	return bearerToken(c)
}

func abortTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "token expired"))
	case errors.Is(err, security.ErrTokenInvalid):
		c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "invalid token"))
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "authentication failed"))
	}
}

// RequireAuth validates the access token carried in the Authentication
// cookie or an Authorization bearer header and stores the user id on the
// request context.
func RequireAuth(issuer *security.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromCookieOrBearer(c, security.AccessCookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "missing access token"))
			return
		}

		userID, err := issuer.ParseAccess(token)
		if err != nil {
			abortTokenError(c, err)
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// RequireRefresh validates the refresh token's signature and its membership
// in the user's stored session list. The Refresh cookie wins over a bearer
// header. On success the user id and the raw token are stored on the
// request context for rotation or revocation downstream.
func RequireRefresh(issuer *security.TokenIssuer, users port.UserRepository, store *usecase.RefreshTokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromCookieOrBearer(c, security.RefreshCookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "missing refresh token"))
			return
		}

		userID, err := issuer.ParseRefresh(token)
		if err != nil {
			abortTokenError(c, err)
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "invalid token"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "authentication failed"))
			return
		}

		if err := store.Validate(c.Request.Context(), user, token); err != nil {
			if errors.Is(err, usecase.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "session revoked"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "authentication failed"))
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(RefreshTokenKey, token)
		c.Next()
	}
}

// RequireConfirmedEmail gates endpoints behind email confirmation. It must
// run after RequireAuth.
func RequireConfirmedEmail(users port.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "authentication required"))
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "authentication required"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "authentication failed"))
			return
		}

		if !user.IsEmailConfirmed {
			c.AbortWithStatusJSON(http.StatusForbidden, newErrorResponse(c, "email confirmation required"))
			return
		}

		c.Next()
	}
}
