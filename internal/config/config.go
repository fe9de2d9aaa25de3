package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration for the order service.
type Config struct {
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Kafka       KafkaConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Mail        MailConfig
	Orders      OrdersConfig
	Idempotency IdempotencyConfig
	Telemetry   TelemetryConfig
	Service     ServiceConfig
}

type HTTPConfig struct {
	Port          int
	MetricsPath   string
	ShutdownGrace time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
)

type DatabaseConfig struct {
	// Driver is postgres or memory. The memory driver seeds demo data.
	Driver          string
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	AutoMigrate     bool
	MigrationsPath  string
}

type KafkaConfig struct {
	Brokers      []string
	OrdersTopic  string
	StatusTopic  string
	WriteTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type MailConfig struct {
	SMTPHost    string
	SMTPPort    int
	Username    string
	Password    string
	From        string
	RequireTLS  bool
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

type OrdersConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

type IdempotencyConfig struct {
	Backend string
	TTL     time.Duration
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	OTelInsecure  bool
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	defaultHTTPPort       = 8080
	defaultMetricsPath    = "/metrics"
	defaultShutdownGrace  = 15 * time.Second
	defaultMigrationsPath = "migrations"
	defaultServiceName    = "petstore-orders"
	defaultServiceVersion = "0.1.0"
	defaultEnvironment    = "development"
	defaultLogLevel       = "info"
	defaultJWTSecret      = "dev-secret-change-me"
)

var ErrInvalid = errors.New("invalid configuration")

// Load reads configuration from environment variables, applying defaults when
// needed. The first malformed variable aborts loading.
func Load() (*Config, error) {
	e := &env{}

	cfg := &Config{
		HTTP: HTTPConfig{
			Port:          e.getInt("API_HTTP_PORT", defaultHTTPPort),
			MetricsPath:   e.getString("API_METRICS_PATH", defaultMetricsPath),
			ShutdownGrace: e.getDuration("API_SHUTDOWN_GRACE", defaultShutdownGrace),
			ReadTimeout:   e.getDuration("API_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  e.getDuration("API_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(e.getString("STORAGE_DRIVER", DriverPostgres)),
			URL:             e.getString("DATABASE_URL", ""),
			MaxConns:        int32(e.getInt("DB_MAX_CONNS", 25)),
			MinConns:        int32(e.getInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime: e.getDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			AutoMigrate:     e.getBool("AUTO_MIGRATE", true),
			MigrationsPath:  e.getString("MIGRATIONS_PATH", defaultMigrationsPath),
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(os.Getenv("KAFKA_BROKERS")),
			OrdersTopic:  e.getString("KAFKA_ORDERS_TOPIC", "orders.placed"),
			StatusTopic:  e.getString("KAFKA_STATUS_TOPIC", "orders.status_changed"),
			WriteTimeout: e.getDuration("KAFKA_WRITE_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:     e.getString("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       e.getInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Secret: e.getString("JWT_SECRET", defaultJWTSecret),
			Issuer: e.getString("JWT_ISSUER", "petstore"),
			TTL:    e.getDuration("JWT_TTL", time.Hour),
		},
		Mail: MailConfig{
			SMTPHost:    os.Getenv("SMTP_HOST"),
			SMTPPort:    e.getInt("SMTP_PORT", 587),
			Username:    os.Getenv("SMTP_USERNAME"),
			Password:    os.Getenv("SMTP_PASSWORD"),
			From:        e.getString("MAIL_FROM", "no-reply@petstore.local"),
			RequireTLS:  e.getBool("SMTP_REQUIRE_TLS", false),
			Workers:     e.getInt("MAIL_WORKERS", 4),
			QueueSize:   e.getInt("MAIL_QUEUE_SIZE", 256),
			SendTimeout: e.getDuration("MAIL_SEND_TIMEOUT", 10*time.Second),
		},
		Orders: OrdersConfig{
			MaxAttempts:  e.getInt("ORDER_MAX_ATTEMPTS", 3),
			RetryBackoff: e.getDuration("ORDER_RETRY_BACKOFF", 50*time.Millisecond),
		},
		Idempotency: IdempotencyConfig{
			Backend: strings.ToLower(e.getString("IDEMPOTENCY_BACKEND", "")),
			TTL:     e.getDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Telemetry: TelemetryConfig{
			LogLevel:      e.getString("LOG_LEVEL", defaultLogLevel),
			OTelEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			OTelInsecure:  e.getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			EnableTracing: e.getBool("OTEL_ENABLE_TRACING", false),
			EnableMetrics: e.getBool("OTEL_ENABLE_METRICS", false),
			SampleRate:    e.getFloat("OTEL_SAMPLE_RATE", 1.0),
		},
		Service: ServiceConfig{
			Name:        e.getString("API_SERVICE_NAME", defaultServiceName),
			Version:     e.getString("SERVICE_VERSION", defaultServiceVersion),
			Environment: e.getString("ENVIRONMENT", defaultEnvironment),
		},
	}

	if e.err != nil {
		return nil, e.err
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildDatabaseURL()
	}
	if cfg.Idempotency.Backend == "" {
		cfg.Idempotency.Backend = cfg.Database.Driver
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("%w: STORAGE_DRIVER must be postgres or memory, got %q", ErrInvalid, c.Database.Driver)
	}

	switch c.Idempotency.Backend {
	case DriverPostgres, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("%w: IDEMPOTENCY_BACKEND must be postgres, redis or memory, got %q", ErrInvalid, c.Idempotency.Backend)
	}
	if c.Idempotency.Backend == DriverPostgres && c.Database.Driver != DriverPostgres {
		return fmt.Errorf("%w: IDEMPOTENCY_BACKEND=postgres requires STORAGE_DRIVER=postgres", ErrInvalid)
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: API_HTTP_PORT out of range: %d", ErrInvalid, c.HTTP.Port)
	}
	if c.Orders.MaxAttempts < 1 {
		return fmt.Errorf("%w: ORDER_MAX_ATTEMPTS must be at least 1", ErrInvalid)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", ErrInvalid)
	}
	return nil
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "petstore")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, dbName, sslMode)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// env reads typed variables and remembers the first parse failure.
type env struct {
	err error
}

func (e *env) fail(key, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%w: %s=%q: %w", ErrInvalid, key, value, err)
	}
}

func (e *env) getString(key, def string) string {
	return getEnvOrDefault(key, def)
}

func (e *env) getInt(key string, def int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		e.fail(key, value, err)
		return def
	}
	return parsed
}

func (e *env) getFloat(key string, def float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.fail(key, value, err)
		return def
	}
	return parsed
}

func (e *env) getBool(key string, def bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		e.fail(key, value, err)
		return def
	}
	return parsed
}

// getDuration accepts Go duration strings ("250ms") or bare seconds ("15").
func (e *env) getDuration(key string, def time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return def
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		e.fail(key, value, err)
		return def
	}
	return parsed
}
