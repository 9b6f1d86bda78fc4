package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Session  SessionConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Google   GoogleConfig
	Audit    AuditConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	SweepIntervalMinutes  int
}

// SessionConfig holds the settings every cookie descriptor is derived from.
// All fields are mandatory.
type SessionConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Env             string
	APIURL          string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token signing and hashing parameters.
type AuthConfig struct {
	JWTSecret  string
	JWTIssuer  string
	BcryptCost int
}

// GoogleConfig holds OAuth client credentials. Empty ClientID disables the flow.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// AuditConfig configures delivery of session events to an external sink.
// An empty WebhookURL disables delivery.
type AuditConfig struct {
	WebhookURL     string
	TimeoutSeconds int
}

// Timeout returns the per-delivery webhook timeout.
func (a AuditConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Load reads configuration from environment variables, applying defaults where possible.
// Session keys have no defaults: a missing one aborts startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	session, err := loadSession()
	if err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "session-service"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			SweepIntervalMinutes:  getEnvAsInt("SESSION_SWEEP_INTERVAL_MINUTES", 60),
		},
		Session: session,
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Prefix:   getEnv("REDIS_SESSION_PREFIX", "session:revoked:"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("AUTH_JWT_SECRET", "dev-secret"),
			JWTIssuer:  getEnv("AUTH_JWT_ISSUER", "session-service"),
			BcryptCost: getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			CallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
		},
		Audit: AuditConfig{
			WebhookURL:     getEnv("AUDIT_WEBHOOK_URL", ""),
			TimeoutSeconds: getEnvAsInt("AUDIT_WEBHOOK_TIMEOUT_SECONDS", 5),
		},
	}

	return cfg, nil
}

func loadSession() (SessionConfig, error) {
	values, err := requireEnv("ACCESS_TOKEN_EXPIRES_IN", "REFRESH_TOKEN_EXPIRES_IN", "NODE_ENV", "API_URL")
	if err != nil {
		return SessionConfig{}, err
	}

	accessTTL, err := ParseExpiry(values["ACCESS_TOKEN_EXPIRES_IN"])
	if err != nil {
		return SessionConfig{}, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRES_IN: %w", err)
	}
	refreshTTL, err := ParseExpiry(values["REFRESH_TOKEN_EXPIRES_IN"])
	if err != nil {
		return SessionConfig{}, fmt.Errorf("invalid REFRESH_TOKEN_EXPIRES_IN: %w", err)
	}

	return SessionConfig{
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		Env:             values["NODE_ENV"],
		APIURL:          values["API_URL"],
	}, nil
}

// IsProduction reports whether cookies must carry the Secure flag.
func (s SessionConfig) IsProduction() bool {
	return s.Env == "production"
}

// APIPath returns the path portion of API_URL without a trailing slash.
// "https://example.com/api/" yields "/api"; "/api" is returned as-is.
func (s SessionConfig) APIPath() string {
	raw := strings.TrimSpace(s.APIURL)
	if u, err := url.Parse(raw); err == nil && u.IsAbs() {
		raw = u.Path
	}
	return strings.TrimRight(raw, "/")
}

// ParseExpiry accepts a Go duration ("15m"), a day count ("7d") or plain seconds ("900").
func ParseExpiry(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)

	var (
		d   time.Duration
		err error
	)
	switch {
	case strings.HasSuffix(raw, "d"):
		var days int
		days, err = strconv.Atoi(strings.TrimSuffix(raw, "d"))
		d = time.Duration(days) * 24 * time.Hour
	default:
		if secs, convErr := strconv.Atoi(raw); convErr == nil {
			d = time.Duration(secs) * time.Second
		} else {
			d, err = time.ParseDuration(raw)
		}
	}
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("expiry must be positive, got %q", raw)
	}
	return d, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SweepInterval returns how often expired refresh sessions are purged.
func (a AppConfig) SweepInterval() time.Duration {
	return time.Duration(a.SweepIntervalMinutes) * time.Minute
}

// Enabled reports whether Google OAuth credentials are present.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.CallbackURL != ""
}

func requireEnv(keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	var missing []string
	for _, key := range keys {
		val := strings.TrimSpace(os.Getenv(key))
		if val == "" {
			missing = append(missing, key)
			continue
		}
		values[key] = val
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return values, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
