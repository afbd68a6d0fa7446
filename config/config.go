package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	HTTP    ServerConfig
	MySQL   MySQLConfig
	Redis   RedisConfig
	Log     LogConfig
	Billing BillingConfig
	Jobs    JobsConfig

	Paystack    ProviderConfig
	Flutterwave ProviderConfig
	Stripe      ProviderConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level string
}

type ProviderConfig struct {
	Enabled   bool
	PublicKey string
	SecretKey string
	BaseURL   string
}

type BillingConfig struct {
	CallbackBaseURL     string
	IntentTTL           time.Duration
	ProviderHTTPTimeout time.Duration
	ReconcileStaleAfter time.Duration
	JobBatchSize        int
}

type JobsConfig struct {
	ReconcileInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		return nil, errors.New("REDIS_ADDR environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "billing-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     redisAddr,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Billing: BillingConfig{
			CallbackBaseURL:     getEnv("BILLING_CALLBACK_BASE_URL", ""),
			IntentTTL:           getMinutesEnv("BILLING_INTENT_TTL_MINUTES", 60*time.Minute),
			ProviderHTTPTimeout: getSecondsEnv("BILLING_PROVIDER_HTTP_TIMEOUT_SECONDS", 15*time.Second),
			ReconcileStaleAfter: getMinutesEnv("BILLING_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        getIntEnv("BILLING_JOB_BATCH_SIZE", 100),
		},
		Jobs: JobsConfig{
			ReconcileInterval: getMinutesEnv("BILLING_RECONCILE_INTERVAL_MINUTES", 5*time.Minute),
		},
		Paystack:    loadProviderConfig("PAYSTACK"),
		Flutterwave: loadProviderConfig("FLUTTERWAVE"),
		Stripe:      loadProviderConfig("STRIPE"),
	}, nil
}

func loadProviderConfig(prefix string) ProviderConfig {
	return ProviderConfig{
		Enabled:   getBoolEnv(prefix+"_ENABLED", false),
		PublicKey: getEnv(prefix+"_PUBLIC_KEY", ""),
		SecretKey: getEnv(prefix+"_SECRET_KEY", ""),
		BaseURL:   getEnv(prefix+"_BASE_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
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

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
