package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/CyberDuck79/fullstack-template/internal/core/port"
	"github.com/CyberDuck79/fullstack-template/internal/infra/config"
	"github.com/CyberDuck79/fullstack-template/internal/infra/database"
	kafkainfra "github.com/CyberDuck79/fullstack-template/internal/infra/kafka"
	"github.com/CyberDuck79/fullstack-template/internal/infra/logger"
	mailinfra "github.com/CyberDuck79/fullstack-template/internal/infra/mail"
	"github.com/CyberDuck79/fullstack-template/internal/infra/oauth"
	redisinfra "github.com/CyberDuck79/fullstack-template/internal/infra/redis"
	"github.com/CyberDuck79/fullstack-template/internal/infra/security"
	postgresrepo "github.com/CyberDuck79/fullstack-template/internal/repository/postgres"
	redisrepo "github.com/CyberDuck79/fullstack-template/internal/repository/redis"
	"github.com/CyberDuck79/fullstack-template/internal/transport/http/middleware"
	"github.com/CyberDuck79/fullstack-template/internal/transport/http/routes"
	"github.com/CyberDuck79/fullstack-template/internal/usecase"
)

// Application owns the wired service graph and its lifecycle.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// New wires every collaborator from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	issuer, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:       cfg.JWT.AccessSecret,
		RefreshSecret:      cfg.JWT.RefreshSecret,
		VerificationSecret: cfg.JWT.VerificationSecret,
		AccessTTL:          cfg.JWT.AccessTTL,
		RefreshTTL:         cfg.JWT.RefreshTTL,
		VerificationTTL:    cfg.JWT.VerificationTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	hashPool := security.NewHashPool(cfg.Hashing.Workers)

	validator := security.DefaultPasswordValidator()
	if cfg.Hashing.PasswordMinScore > 0 {
		validator = security.NewPasswordValidator(
			security.MinLengthRule(7),
			security.StrengthRule(cfg.Hashing.PasswordMinScore),
		)
	}

	// Redis is optional; without it login/register throttling is disabled.
	var (
		redisClient *redisinfra.Client
		rateLimiter *middleware.RateLimiter
	)
	if cfg.Redis.Host != "" {
		redisClient, err = redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}

		window := cfg.RateLimit.WindowDuration
		if window <= 0 {
			window = time.Minute
		}
		rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: "template:rate-limit",
			TTL:       window * 2,
		})
		rateLimiter = middleware.NewRateLimiter(rateLimitStore, log)
	} else {
		log.Info("redis not configured, rate limiting disabled")
	}

	var (
		eventPublisher port.EventPublisher
		producer       *kafkainfra.Producer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	mailer, err := mailinfra.NewSMTPMailer(cfg.SMTP, log)
	if err != nil {
		return nil, fmt.Errorf("init mailer: %w", err)
	}

	provider := oauth.NewClient(cfg.OAuth)

	repos := postgresrepo.NewRepositories(pool)

	refreshStore := usecase.NewRefreshTokenStore(repos.Users, hashPool)
	verification := usecase.NewEmailVerificationService(repos.Users, issuer, mailer, eventPublisher, cfg.Email.ConfirmationURL, log)
	authService := usecase.NewAuthService(repos.Users, refreshStore, issuer, hashPool, validator, eventPublisher, verification, log)
	federationService := usecase.NewFederationService(repos.Users, provider, issuer, refreshStore, eventPublisher, log)
	userService := usecase.NewUserService(repos.Users)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Namespace: "template"})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	deps := routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Issuer:      issuer,
		UserRepo:    repos.Users,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Database:    pool,
		Services: routes.ServiceSet{
			Auth:         authService,
			Federation:   federationService,
			Verification: verification,
			Users:        userService,
			RefreshStore: refreshStore,
		},
	}
	if redisClient != nil {
		deps.Cache = redisClient
	}

	return &Application{
		cfg:      cfg,
		engine:   routes.Register(deps),
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
