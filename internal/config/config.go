package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported store drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ingest   IngestConfig
	AMQP     AMQPConfig
	Log      LogConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	Username   string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
	SeedDemo   bool // load the demo data set into an empty store
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// IngestConfig describes how external transaction feeds are booked
type IngestConfig struct {
	APIKey      string
	Username    string // admin account the feed acts as
	WalletID    string
	CategoryID  string
	MinorDigits int32 // digits of the currency's smallest unit
}

// Enabled reports whether the webhook endpoint should accept requests
func (c IngestConfig) Enabled() bool {
	return c.APIKey != ""
}

// AMQPConfig holds the optional message broker feed
type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string
}

// GetDSN returns the database connection string for the configured driver
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == DriverSQLite {
		return c.SQLitePath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", DriverMemory),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvAsInt("DB_PORT", 5432),
			Username:   getEnv("DB_USERNAME", "postgres"),
			Password:   getEnv("DB_PASSWORD", "password"),
			DBName:     getEnv("DB_NAME", "kasciraya"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "./data/kasciraya.db"),
			SeedDemo:   getEnvAsBool("SEED_DEMO", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "your-secret-key-here"),
			TokenTTL:  getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
		},
		Ingest: IngestConfig{
			APIKey:      getEnv("INGEST_API_KEY", ""),
			Username:    getEnv("INGEST_USERNAME", "admin"),
			WalletID:    getEnv("INGEST_WALLET_ID", ""),
			CategoryID:  getEnv("INGEST_CATEGORY_ID", ""),
			MinorDigits: int32(getEnvAsInt("INGEST_MINOR_DIGITS", 2)),
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "kasciraya"),
			Queue:    getEnv("AMQP_QUEUE", "incoming_transactions"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Server.Port))
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			problems = append(problems, "DB_HOST and DB_NAME are required for the postgres driver")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH is required for the sqlite driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid DB_DRIVER %q: must be one of memory, postgres, sqlite", c.Database.Driver))
	}

	if c.Auth.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET cannot be empty")
	}
	if c.Auth.TokenTTL < time.Minute {
		problems = append(problems, fmt.Sprintf("invalid TOKEN_TTL %v: must be at least one minute", c.Auth.TokenTTL))
	}

	if c.Ingest.Enabled() || c.AMQP.URL != "" {
		if c.Ingest.Username == "" || c.Ingest.WalletID == "" || c.Ingest.CategoryID == "" {
			problems = append(problems, "INGEST_USERNAME, INGEST_WALLET_ID and INGEST_CATEGORY_ID are required when a transaction feed is configured")
		}
	}
	if c.Ingest.MinorDigits < 0 || c.Ingest.MinorDigits > 6 {
		problems = append(problems, fmt.Sprintf("invalid INGEST_MINOR_DIGITS %d: must be between 0 and 6", c.Ingest.MinorDigits))
	}

	if c.AMQP.URL != "" {
		if parsed, err := url.Parse(c.AMQP.URL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP_URL: %v", err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP_URL scheme %q: must be amqp or amqps", parsed.Scheme))
		}
		if c.AMQP.Exchange == "" || c.AMQP.Queue == "" {
			problems = append(problems, "AMQP_EXCHANGE and AMQP_QUEUE cannot be empty when AMQP_URL is set")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
