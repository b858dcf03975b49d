package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file - ignore error if file doesn't exist
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Note: .env file not found or could not be loaded: %v\n", err)
	}
}

type Config struct {
	Primary       PrimaryConfig
	Database      DatabaseConfig
	Server        ServerConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Auth          AuthConfig
	VNPay         VNPayConfig
	Observability *ObservabilityConfig
}

type PrimaryConfig struct {
	Env string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	IdleTimeout        int
	CORSAllowedOrigins []string
}

type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LockTTL      time.Duration
	KeyPrefix    string
}

type KafkaConfig struct {
	Brokers []string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// VNPayConfig holds the merchant credentials and endpoints for the VNPay
// sandbox/production gateway. HashSecret signs every outbound request and
// verifies every inbound callback.
type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

type ObservabilityConfig struct {
	ServiceName  string
	Environment  string
	Logging      LoggingConfig
	NewRelic     NewRelicConfig
	HealthChecks HealthChecksConfig
}

type LoggingConfig struct {
	Level              string
	Format             string
	SlowQueryThreshold time.Duration
}

type NewRelicConfig struct {
	LicenseKey                string
	AppLogForwardingEnabled   bool
	DistributedTracingEnabled bool
	DebugLogging              bool
}

type HealthChecksConfig struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
	Checks   []string
}

// Helper functions for parsing env vars
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return fallback
}

func (c *ObservabilityConfig) GetLogLevel() string {
	if c.Logging.Level == "" {
		switch c.Environment {
		case "production":
			return "info"
		case "development":
			return "debug"
		default:
			return "info"
		}
	}
	return c.Logging.Level
}

func (c *ObservabilityConfig) IsProduction() bool {
	return c.Environment == "production"
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Primary: PrimaryConfig{
			Env: getEnv("MEDLINK_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("MEDLINK_DB_HOST", "localhost"),
			Port:            getEnvInt("MEDLINK_DB_PORT", 5432),
			User:            getEnv("MEDLINK_DB_USER", "medlink"),
			Password:        getEnv("MEDLINK_DB_PASSWORD", ""),
			Name:            getEnv("MEDLINK_DB_NAME", "medlink"),
			SSLMode:         getEnv("MEDLINK_DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("MEDLINK_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("MEDLINK_DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvInt("MEDLINK_DB_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("MEDLINK_DB_CONN_MAX_IDLE_TIME", 60),
		},
		Server: ServerConfig{
			Port:               getEnv("MEDLINK_SERVER_PORT", "8000"),
			ReadTimeout:        getEnvInt("MEDLINK_SERVER_READ_TIMEOUT", 30),
			WriteTimeout:       getEnvInt("MEDLINK_SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:        getEnvInt("MEDLINK_SERVER_IDLE_TIMEOUT", 60),
			CORSAllowedOrigins: getEnvSlice("MEDLINK_SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Redis: RedisConfig{
			Address:      getEnv("MEDLINK_REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnv("MEDLINK_REDIS_PASSWORD", ""),
			DB:           getEnvInt("MEDLINK_REDIS_DB", 0),
			PoolSize:     getEnvInt("MEDLINK_REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("MEDLINK_REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:  getEnvDuration("MEDLINK_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("MEDLINK_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("MEDLINK_REDIS_WRITE_TIMEOUT", 3*time.Second),
			LockTTL:      getEnvDuration("MEDLINK_REDIS_LOCK_TTL", 30*time.Second),
			KeyPrefix:    getEnv("MEDLINK_REDIS_KEY_PREFIX", "medlink:"),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("MEDLINK_KAFKA_BROKERS", []string{"localhost:9092"}),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("MEDLINK_JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("MEDLINK_JWT_TTL", 24*time.Hour),
		},
		VNPay: VNPayConfig{
			TmnCode:    getEnv("MEDLINK_VNPAY_TMN_CODE", ""),
			HashSecret: getEnv("MEDLINK_VNPAY_HASH_SECRET", ""),
			PayURL:     getEnv("MEDLINK_VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			ReturnURL:  getEnv("MEDLINK_VNPAY_RETURN_URL", "http://localhost:8000/api/v1/transactions/vnpay_return"),
		},
		Observability: &ObservabilityConfig{
			ServiceName: "Medlink",
			Environment: getEnv("MEDLINK_ENV", "development"),
			Logging: LoggingConfig{
				Level:              getEnv("MEDLINK_LOG_LEVEL", "debug"),
				Format:             getEnv("MEDLINK_LOG_FORMAT", "console"),
				SlowQueryThreshold: getEnvDuration("MEDLINK_LOG_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
			},
			NewRelic: NewRelicConfig{
				LicenseKey:                getEnv("MEDLINK_NEWRELIC_LICENSE_KEY", ""),
				AppLogForwardingEnabled:   getEnvBool("MEDLINK_NEWRELIC_LOG_FORWARDING", true),
				DistributedTracingEnabled: getEnvBool("MEDLINK_NEWRELIC_DISTRIBUTED_TRACING", true),
				DebugLogging:              getEnvBool("MEDLINK_NEWRELIC_DEBUG", false),
			},
			HealthChecks: HealthChecksConfig{
				Enabled:  getEnvBool("MEDLINK_HEALTHCHECK_ENABLED", true),
				Interval: getEnvDuration("MEDLINK_HEALTHCHECK_INTERVAL", 30*time.Second),
				Timeout:  getEnvDuration("MEDLINK_HEALTHCHECK_TIMEOUT", 5*time.Second),
				Checks:   getEnvSlice("MEDLINK_HEALTHCHECK_CHECKS", []string{"database", "redis"}),
			},
		},
	}

	// Validate required fields
	if cfg.Database.Host == "" {
		return nil, fmt.Errorf("MEDLINK_DB_HOST is required")
	}
	if cfg.Database.Name == "" {
		return nil, fmt.Errorf("MEDLINK_DB_NAME is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("MEDLINK_JWT_SECRET is required")
	}

	return cfg, nil
}
