package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full process configuration, read once at startup.
type Config struct {
	Server       Server
	Provider     Provider
	Webhook      Webhook
	Verification Verification
	Postgres     Postgres
	Redis        RedisConfig
	Kafka        Kafka
	Worker       Worker
	Log          Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
	// JWTSigningKey guards the command surface. Empty disables auth (local runs).
	JWTSigningKey string
	JWTIssuer     string
}

// Provider configures the outbound verification provider client.
type Provider struct {
	BaseURL     string
	AppToken    string
	SecretKey   string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
}

// Webhook configures inbound callbacks.
type Webhook struct {
	// Secret verifies X-Payload-Digest. Empty skips verification (logged).
	Secret       string
	EventTTL     time.Duration
	MaxBodyBytes int64
	DedupeTTL    time.Duration
}

// Verification holds lifecycle defaults.
type Verification struct {
	DefaultLevelName string
	AccessTokenTTL   time.Duration
	PendingExpiry    time.Duration
}

// Postgres is optional; an empty URL selects in-memory stores.
type Postgres struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; an empty URL selects the in-memory replay ledger.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka is optional; no brokers selects the log audit sink.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// Worker configures the background sweeper.
type Worker struct {
	SweepInterval time.Duration
}

type Log struct {
	Level  string
	Format string
}

// FromEnv builds Config from environment variables, loading a .env file first
// when one exists. Malformed values are collected and returned together.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	var r reader
	cfg := Config{
		Server: Server{
			Addr:          r.str("KYC_ADDR", ":8080"),
			JWTSigningKey: r.str("JWT_SIGNING_KEY", ""),
			JWTIssuer:     r.str("JWT_ISSUER", ""),
		},
		Provider: Provider{
			BaseURL:     r.str("PROVIDER_BASE_URL", "https://api.sumsub.com"),
			AppToken:    r.str("PROVIDER_APP_TOKEN", ""),
			SecretKey:   r.str("PROVIDER_SECRET_KEY", ""),
			Timeout:     r.duration("PROVIDER_TIMEOUT", 30*time.Second),
			MaxAttempts: r.integer("PROVIDER_MAX_ATTEMPTS", 3),
			BaseBackoff: r.duration("PROVIDER_BASE_BACKOFF", time.Second),
		},
		Webhook: Webhook{
			Secret:       r.str("WEBHOOK_SECRET", ""),
			EventTTL:     r.duration("WEBHOOK_EVENT_TTL", 30*24*time.Hour),
			MaxBodyBytes: int64(r.integer("WEBHOOK_MAX_BODY_BYTES", 1<<20)),
			DedupeTTL:    r.duration("WEBHOOK_DEDUPE_TTL", 24*time.Hour),
		},
		Verification: Verification{
			DefaultLevelName: r.str("DEFAULT_LEVEL_NAME", "basic-kyc-level"),
			AccessTokenTTL:   r.duration("ACCESS_TOKEN_TTL", time.Hour),
			PendingExpiry:    r.duration("PENDING_EXPIRY", 30*24*time.Hour),
		},
		Postgres: Postgres{
			URL:             r.str("DATABASE_URL", ""),
			MaxOpenConns:    r.integer("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    r.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: r.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    r.list("KAFKA_BROKERS"),
			AuditTopic: r.str("KAFKA_AUDIT_TOPIC", "kyc.verification.audit"),
		},
		Worker: Worker{
			SweepInterval: r.duration("SWEEP_INTERVAL", time.Hour),
		},
		Log: Log{
			Level:  r.str("LOG_LEVEL", "info"),
			Format: r.str("LOG_FORMAT", "json"),
		},
	}
	if err := errors.Join(r.errs...); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field rules.
func (c Config) Validate() error {
	var errs []error
	if c.Provider.BaseURL == "" {
		errs = append(errs, errors.New("PROVIDER_BASE_URL is required"))
	}
	if c.Provider.MaxAttempts < 1 {
		errs = append(errs, errors.New("PROVIDER_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Verification.AccessTokenTTL < time.Minute {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be at least 1m"))
	}
	if c.Webhook.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("WEBHOOK_MAX_BODY_BYTES must be positive"))
	}
	if c.Worker.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

type reader struct {
	errs []error
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
