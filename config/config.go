package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds the runtime configuration of the leave service.
type Config struct {
	App     AppConfig
	Store   StoreConfig
	Kafka   KafkaConfig
	HTTP    HTTPConfig
	Monitor MonitorConfig
	Log     LogConfig
}

// AppConfig holds application behaviour switches.
type AppConfig struct {
	Port int
	// TransactionalValidation makes create/edit validate and write in one transaction.
	TransactionalValidation bool
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Backend     string
	SQLitePath  string
	PostgresDSN string
}

// KafkaConfig configures the change feed. An empty Brokers list disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
	RateLimit      float64
	RateBurst      int
}

// MonitorConfig configures the periodic shortage check.
type MonitorConfig struct {
	// Interval of zero disables the monitor.
	Interval time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	config := &Config{}

	port, err := strconv.Atoi(getEnv("LEAVE_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_PORT: %w", err)
	}
	txValidation, err := strconv.ParseBool(getEnv("LEAVE_TRANSACTIONAL_VALIDATION", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_TRANSACTIONAL_VALIDATION: %w", err)
	}
	config.App = AppConfig{
		Port:                    port,
		TransactionalValidation: txValidation,
	}

	config.Store = StoreConfig{
		Backend:     strings.ToLower(getEnv("LEAVE_STORE", StoreSQLite)),
		SQLitePath:  getEnv("LEAVE_SQLITE_PATH", "leave.db"),
		PostgresDSN: getEnv("LEAVE_POSTGRES_DSN", ""),
	}

	config.Kafka = KafkaConfig{
		Brokers: getEnvSlice("LEAVE_KAFKA_BROKERS"),
		Topic:   getEnv("LEAVE_KAFKA_TOPIC", "leave.requests.v1"),
	}

	timeout, err := time.ParseDuration(getEnv("LEAVE_REQUEST_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_REQUEST_TIMEOUT: %w", err)
	}
	rateLimit, err := strconv.ParseFloat(getEnv("LEAVE_RATE_LIMIT", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_RATE_LIMIT: %w", err)
	}
	rateBurst, err := strconv.Atoi(getEnv("LEAVE_RATE_BURST", "40"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_RATE_BURST: %w", err)
	}
	origins := getEnvSlice("LEAVE_CORS_ORIGINS")
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	config.HTTP = HTTPConfig{
		RequestTimeout: timeout,
		CORSOrigins:    origins,
		RateLimit:      rateLimit,
		RateBurst:      rateBurst,
	}

	interval, err := time.ParseDuration(getEnv("LEAVE_SHORTAGE_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAVE_SHORTAGE_INTERVAL: %w", err)
	}
	config.Monitor = MonitorConfig{Interval: interval}

	config.Log = LogConfig{
		Level:  strings.ToLower(getEnv("LEAVE_LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnv("LEAVE_LOG_FORMAT", "json")),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("LEAVE_SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("LEAVE_POSTGRES_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown LEAVE_STORE %q", c.Store.Backend)
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("LEAVE_PORT out of range: %d", c.App.Port)
	}
	if c.HTTP.RateLimit <= 0 || c.HTTP.RateBurst <= 0 {
		return fmt.Errorf("LEAVE_RATE_LIMIT and LEAVE_RATE_BURST must be positive")
	}
	if c.Monitor.Interval < 0 {
		return fmt.Errorf("LEAVE_SHORTAGE_INTERVAL must not be negative")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("LEAVE_KAFKA_TOPIC is required when brokers are set")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return nil
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
