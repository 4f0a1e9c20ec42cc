package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	OAuth     OAuthSettings     `mapstructure:"oauth"`
	SMTP      SMTPSettings      `mapstructure:"smtp"`
	Email     EmailSettings     `mapstructure:"email"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Hashing   HashingSettings   `mapstructure:"hashing"`
}

type AppSettings struct {
	Name           string   `mapstructure:"name"`
	Env            string   `mapstructure:"env"`
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the rate-limit attempt store. Leaving Host
// empty disables redis-backed throttling.
type RedisSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// KafkaSettings configures the event publisher. Empty Brokers selects the
// logging stub instead.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// JWTSettings carries the three signing secrets and TTLs. Each token kind
// has its own key; Validate rejects reuse.
type JWTSettings struct {
	AccessSecret       string        `mapstructure:"access_secret"`
	AccessTTL          time.Duration `mapstructure:"access_ttl"`
	RefreshSecret      string        `mapstructure:"refresh_secret"`
	RefreshTTL         time.Duration `mapstructure:"refresh_ttl"`
	VerificationSecret string        `mapstructure:"verification_secret"`
	VerificationTTL    time.Duration `mapstructure:"verification_ttl"`
}

// OAuthSettings points at the identity provider used for code exchange.
type OAuthSettings struct {
	AuthURL      string        `mapstructure:"auth_url"`
	TokenURL     string        `mapstructure:"token_url"`
	ProfileURL   string        `mapstructure:"profile_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURI  string        `mapstructure:"redirect_uri"`
	Scope        string        `mapstructure:"scope"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type SMTPSettings struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Sender   string        `mapstructure:"sender"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type EmailSettings struct {
	ConfirmationURL string `mapstructure:"confirmation_url"`
}

type RateLimitSettings struct {
	WindowDuration      time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts    int           `mapstructure:"login_max_attempts"`
	RegisterMaxAttempts int           `mapstructure:"register_max_attempts"`
}

type HashingSettings struct {
	Workers          int `mapstructure:"workers"`
	PasswordMinScore int `mapstructure:"password_min_score"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.allowed_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"jwt.access_secret",
		"jwt.access_ttl",
		"jwt.refresh_secret",
		"jwt.refresh_ttl",
		"jwt.verification_secret",
		"jwt.verification_ttl",
		"oauth.auth_url",
		"oauth.token_url",
		"oauth.profile_url",
		"oauth.client_id",
		"oauth.client_secret",
		"oauth.redirect_uri",
		"oauth.scope",
		"oauth.timeout",
		"smtp.host",
		"smtp.port",
		"smtp.user",
		"smtp.password",
		"smtp.sender",
		"smtp.timeout",
		"email.confirmation_url",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.register_max_attempts",
		"hashing.workers",
		"hashing.password_min_score",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate fails fast on missing or unsafe settings. Secrets are never
// discovered missing at request time.
func (c *AppConfig) Validate() error {
	jwt := c.JWT
	if jwt.AccessSecret == "" || jwt.RefreshSecret == "" || jwt.VerificationSecret == "" {
		return fmt.Errorf("config: jwt access, refresh, and verification secrets are required")
	}
	if jwt.AccessSecret == jwt.RefreshSecret ||
		jwt.AccessSecret == jwt.VerificationSecret ||
		jwt.RefreshSecret == jwt.VerificationSecret {
		return fmt.Errorf("config: jwt secrets must be distinct per token kind")
	}
	if jwt.AccessTTL <= 0 || jwt.RefreshTTL <= 0 || jwt.VerificationTTL <= 0 {
		return fmt.Errorf("config: jwt TTLs must be positive")
	}

	if c.OAuth.TokenURL == "" || c.OAuth.ProfileURL == "" {
		return fmt.Errorf("config: oauth token and profile URLs are required")
	}
	if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" {
		return fmt.Errorf("config: oauth client id and secret are required")
	}

	if c.SMTP.Host == "" || c.SMTP.Sender == "" {
		return fmt.Errorf("config: smtp host and sender are required")
	}
	if c.Email.ConfirmationURL == "" {
		return fmt.Errorf("config: email confirmation URL is required")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "template-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "template")
	v.SetDefault("postgres.password", "template_password")
	v.SetDefault("postgres.database", "template")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "template")
	v.SetDefault("kafka.async", true)

	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("jwt.verification_ttl", "24h")

	v.SetDefault("oauth.scope", "public")
	v.SetDefault("oauth.timeout", "10s")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.timeout", "10s")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.register_max_attempts", 3)

	v.SetDefault("hashing.workers", 0)
	v.SetDefault("hashing.password_min_score", 0)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "APP_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
