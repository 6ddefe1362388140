package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/auth"
	pkgconfig "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/config"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/database"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/tracing"
)

const (
	// ServiceName labels logs, metrics, traces and event sources.
	ServiceName = "forum-auth"

	minSecretLength         = 32
	minProductionBcryptCost = 10
)

// Config holds all configuration for the forum auth service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`

	// Token signing
	SigningSecret string        `env:"SIGNING_SECRET,required,unset"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	TokenLeeway   time.Duration `env:"TOKEN_LEEWAY" envDefault:"0s"`
	TokenIssuer   string        `env:"TOKEN_ISSUER" envDefault:"forum"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"12"`

	// Session cookie
	CookieName   string `env:"COOKIE_NAME" envDefault:"access_token"`
	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"true"`

	// Federated sign-in. Google is enabled when the client id is set.
	GoogleClientID     string        `env:"OAUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"OAUTH_GOOGLE_CLIENT_SECRET,unset"`
	GoogleCallbackURL  string        `env:"OAUTH_GOOGLE_CALLBACK_URL" envDefault:"http://localhost:8080/api/v1/auth/google/callback"`
	OAuthSuccessURL    string        `env:"OAUTH_SUCCESS_REDIRECT" envDefault:"http://localhost:3000/"`
	OAuthStateTTL      time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"forum"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"forum_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"forum"`
	PostgresSSLMode  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"20"`

	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Login rate limiting, per client IP
	LoginRateLimitRPS   float64 `env:"LOGIN_RATE_LIMIT_RPS" envDefault:"1"`
	LoginRateLimitBurst int     `env:"LOGIN_RATE_LIMIT_BURST" envDefault:"5"`
	TrustProxy          bool    `env:"TRUST_PROXY" envDefault:"false"`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelInsecure   bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from dotenvFiles (if present) and the environment.
func Load(dotenvFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, dotenvFiles...); err != nil {
		return nil, fmt.Errorf("load forum config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate checks cross-field constraints the env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort))
	}
	if c.SigningSecret == "" {
		errs = append(errs, errors.New("SIGNING_SECRET must be set"))
	} else if !c.IsDevelopment() && len(c.SigningSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("SIGNING_SECRET must be at least %d characters in %q mode, got %d",
			minSecretLength, c.Environment, len(c.SigningSecret)))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}
	if c.TokenLeeway < 0 {
		errs = append(errs, fmt.Errorf("TOKEN_LEEWAY must not be negative, got %s", c.TokenLeeway))
	}
	if _, err := auth.NewBcryptHasher(c.BcryptCost); err != nil {
		errs = append(errs, fmt.Errorf("BCRYPT_COST: %w", err))
	} else if c.Environment == "production" && c.BcryptCost < minProductionBcryptCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be at least %d in production, got %d",
			minProductionBcryptCost, c.BcryptCost))
	}
	if c.GoogleClientID != "" && c.GoogleClientSecret == "" {
		errs = append(errs, errors.New("OAUTH_GOOGLE_CLIENT_SECRET must be set when OAUTH_GOOGLE_CLIENT_ID is"))
	}
	if c.LoginRateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("LOGIN_RATE_LIMIT_RPS must be positive, got %v", c.LoginRateLimitRPS))
	}

	return errors.Join(errs...)
}

// Postgres returns the connection settings for pkg/database.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		DBName:   c.PostgresDB,
		SSLMode:  c.PostgresSSLMode,
		MaxConns: c.PostgresMaxConns,
	}
}

// Redis returns the connection settings for pkg/database.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// Token returns the token codec settings.
func (c *Config) Token() auth.TokenConfig {
	return auth.TokenConfig{
		Secret: []byte(c.SigningSecret),
		TTL:    c.TokenTTL,
		Leeway: c.TokenLeeway,
		Issuer: c.TokenIssuer,
	}
}

// Cookie returns the session cookie settings.
func (c *Config) Cookie() auth.CookieConfig {
	return auth.CookieConfig{Name: c.CookieName, Domain: c.CookieDomain, Secure: c.CookieSecure}
}

// Tracing returns the OpenTelemetry settings.
func (c *Config) Tracing(version string) tracing.Config {
	return tracing.Config{
		Enabled:        c.OTelEnabled,
		ServiceName:    ServiceName,
		ServiceVersion: version,
		Environment:    c.Environment,
		Endpoint:       c.OTelEndpoint,
		Insecure:       c.OTelInsecure,
		SampleRate:     c.OTelSampleRate,
	}
}
