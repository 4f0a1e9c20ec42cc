package middleware

import "github.com/gin-gonic/gin"

// Context keys populated by the auth middleware chain.
const (
	UserIDKey       = "user_id"
	RefreshTokenKey = "refresh_token"
	RequestIDKey    = "request_id"
)

// GetUserID returns the authenticated user's id from the Gin context.
func GetUserID(c *gin.Context) (int64, bool) {
	val, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := val.(int64)
	return id, ok
}

// GetRefreshToken returns the raw refresh token validated by RequireRefresh.
func GetRefreshToken(c *gin.Context) (string, bool) {
	val, ok := c.Get(RefreshTokenKey)
	if !ok {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}

// GetRequestID returns the correlation id assigned to the request.
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
