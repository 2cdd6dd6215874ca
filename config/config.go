package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	MySQL             MySQLConfig
	Redis             RedisConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	GoCardless        GoCardlessConfig
	RateLimit         RateLimitConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName      string
	MetricsNamespace string
}

type ServerConfig struct {
	Host string
	Port string
	// PublicBodyLimit caps request bodies on unauthenticated routes, in
	// echo's BodyLimit format (e.g. "1M").
	PublicBodyLimit string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type LogConfig struct {
	Level  string
	Format string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

// GoCardlessConfig holds the merchant gateway settings.
type GoCardlessConfig struct {
	AccessToken   string        `validate:"required,min=40"`
	WebhookSecret string        `validate:"required,min=40"`
	DevMode       string        `validate:"oneof=true false"`
	PublicBaseURL string        `validate:"required,url"`
	CompanyName   string
	HTTPTimeout   time.Duration `validate:"gt=0"`
	FlowTTL       time.Duration `validate:"gt=0"`
}

type RateLimitConfig struct {
	// Public is a ulule/limiter formatted rate such as "120-M". Empty disables it.
	Public string
}

type JobsConfig struct {
	ReceiptsPurgeInterval time.Duration
	ReceiptsRetention     time.Duration
	BatchSize             int32
}

var validate = validator.New()

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName:      getEnv("APP_SERVICE_NAME", "gocardless-service"),
			MetricsNamespace: getEnv("APP_METRICS_NAMESPACE", "gocardless"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),

			PublicBodyLimit: getEnv("HTTP_PUBLIC_BODY_LIMIT", "1M"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		GoCardless: GoCardlessConfig{
			AccessToken:   getEnv("GOCARDLESS_ACCESS_TOKEN", ""),
			WebhookSecret: getEnv("GOCARDLESS_WEBHOOK_SECRET", ""),
			DevMode:       strings.ToLower(getEnv("GOCARDLESS_DEV_MODE", "false")),
			PublicBaseURL: strings.TrimRight(getEnv("GOCARDLESS_PUBLIC_BASE_URL", ""), "/"),
			CompanyName:   getEnv("GOCARDLESS_COMPANY_NAME", ""),
			HTTPTimeout:   getSecondsEnv("GOCARDLESS_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			FlowTTL:       getMinutesEnv("GOCARDLESS_FLOW_TTL_MINUTES", 60*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Public: getEnv("RATE_LIMIT_PUBLIC", "120-M"),
		},
		Jobs: JobsConfig{
			ReceiptsPurgeInterval: getMinutesEnv("JOBS_RECEIPTS_PURGE_INTERVAL_MINUTES", 60*time.Minute),
			ReceiptsRetention:     getHoursEnv("JOBS_RECEIPTS_RETENTION_HOURS", 30*24*time.Hour),
			BatchSize:             int32(getIntEnv("JOBS_BATCH_SIZE", 500)),
		},
	}, nil
}

// Validate checks the gateway settings before any provider call is made.
func (c GoCardlessConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return fmt.Errorf("invalid gocardless setting %s: failed %q", first.Field(), first.Tag())
		}
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getHoursEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if hours, err := strconv.Atoi(value); err == nil {
			return time.Duration(hours) * time.Hour
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
