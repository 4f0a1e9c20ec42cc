package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CyberDuck79/fullstack-template/internal/infra/security"
	"github.com/CyberDuck79/fullstack-template/internal/transport/http/middleware"
	"github.com/CyberDuck79/fullstack-template/internal/usecase"
)

// AuthHandler exposes registration, login, federated login, and the
// refresh-token lifecycle.
type AuthHandler struct {
	auth       *usecase.AuthService
	federation *usecase.FederationService
	issuer     *security.TokenIssuer
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, federation *usecase.FederationService, issuer *security.TokenIssuer) *AuthHandler {
	return &AuthHandler{auth: auth, federation: federation, issuer: issuer}
}

// Register godoc
// @Summary Register a new account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration payload"
// @Success 201 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Router /authentication/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, NewUserResponse(user))
}

// Login godoc
// @Summary Authenticate with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} AuthenticationResponse
// @Failure 401 {object} ErrorResponse
// @Router /authentication/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	_, pair, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	setSessionCookies(c, pair)
	c.JSON(http.StatusOK, NewAuthenticationResponse(pair))
}

// OAuth godoc
// @Summary Authenticate through the identity provider
// @Tags Authentication
// @Produce json
// @Param code query string true "Authorization code"
// @Success 200 {object} AuthenticationResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /authentication/oauth [get]
func (h *AuthHandler) OAuth(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "authorization code is required"))
		return
	}

	_, pair, err := h.federation.LoginWithCode(c.Request.Context(), code)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrFederation, Status: http.StatusUnauthorized, Message: "federated authentication failed"},
			{Err: usecase.ErrAccountConflict, Status: http.StatusConflict, Message: "email already registered with a password account"},
		}, http.StatusInternalServerError, "federated authentication failed")
		return
	}

	setSessionCookies(c, pair)
	c.JSON(http.StatusOK, NewAuthenticationResponse(pair))
}

// Refresh godoc
// @Summary Rotate the refresh token
// @Tags Authentication
// @Produce json
// @Success 200 {object} AuthenticationResponse
// @Failure 401 {object} ErrorResponse
// @Router /authentication/refresh [get]
func (h *AuthHandler) Refresh(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	token, ok := middleware.GetRefreshToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing refresh token"))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), userID, token)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "session revoked"},
		}, http.StatusInternalServerError, "refresh failed")
		return
	}

	setSessionCookies(c, pair)
	c.JSON(http.StatusOK, NewAuthenticationResponse(pair))
}

// Logout godoc
// @Summary Revoke the presented refresh token
// @Tags Authentication
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Router /authentication/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	token, ok := middleware.GetRefreshToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing refresh token"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), userID, token); err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "logout failed")
		return
	}

	for _, cookie := range h.issuer.LogoutCookies() {
		c.Writer.Header().Add("Set-Cookie", cookie)
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}
