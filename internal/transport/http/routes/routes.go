package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/CyberDuck79/fullstack-template/internal/core/port"
	"github.com/CyberDuck79/fullstack-template/internal/infra/config"
	"github.com/CyberDuck79/fullstack-template/internal/infra/security"
	"github.com/CyberDuck79/fullstack-template/internal/transport/http/handlers"
	"github.com/CyberDuck79/fullstack-template/internal/transport/http/middleware"
	"github.com/CyberDuck79/fullstack-template/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Federation   *usecase.FederationService
	Verification *usecase.EmailVerificationService
	Users        *usecase.UserService
	RefreshStore *usecase.RefreshTokenStore
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Services    ServiceSet
	Issuer      *security.TokenIssuer
	UserRepo    port.UserRepository
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware. Every
// guard is an explicit handler in the chain.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	requireAuth := middleware.RequireAuth(deps.Issuer)
	requireRefresh := middleware.RequireRefresh(deps.Issuer, deps.UserRepo, deps.Services.RefreshStore)
	requireConfirmed := middleware.RequireConfirmedEmail(deps.UserRepo)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Federation, deps.Issuer)
	emailHandler := handlers.NewEmailHandler(deps.Services.Verification)
	userHandler := handlers.NewUserHandler(deps.Services.Users)

	auth := r.Group("/authentication")
	{
		registerChain := rateLimitChain(deps, "register",
			deps.Config.RateLimit.RegisterMaxAttempts, authHandler.Register)
		auth.POST("/register", registerChain...)

		loginChain := rateLimitChain(deps, "login",
			deps.Config.RateLimit.LoginMaxAttempts, authHandler.Login)
		auth.POST("/login", loginChain...)

		auth.GET("/oauth", authHandler.OAuth)
		auth.GET("/refresh", requireRefresh, authHandler.Refresh)
		auth.POST("/logout", requireRefresh, authHandler.Logout)
	}

	email := r.Group("/email-confirmation")
	{
		email.POST("/confirm", emailHandler.Confirm)
		email.POST("/resend-confirmation-link", requireAuth, emailHandler.Resend)
	}

	users := r.Group("/users")
	{
		users.GET("/me", requireAuth, userHandler.Me)
		users.PUT("/me", requireAuth, requireConfirmed, userHandler.UpdateMe)
		users.GET("/:id", requireAuth, userHandler.ByID)
	}

	return r
}

// rateLimitChain prepends a sliding-window limit to the handler when a
// limiter is configured.
func rateLimitChain(deps Dependencies, name string, limit int, handler gin.HandlerFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return []gin.HandlerFunc{handler}
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     deps.Config.RateLimit.WindowDuration,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule), handler}
}
