package configuration

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Database DatabaseConfig
	Token    TokenConfig
	Unit     UnitConfig
	Server   ServerConfig
	NATSURL  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// TokenConfig holds the process-wide signing secret and the two TTL
// classes: long-lived identity tokens, short-lived project grants.
type TokenConfig struct {
	Secret      string
	IdentityTTL time.Duration
	GrantTTL    time.Duration
}

// UnitConfig is the fallback storage unit used when a user has no
// delivery unit row of their own.
type UnitConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type ServerConfig struct {
	Port string
}

func Load() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "delivery"),
			Password: getEnv("DB_PASSWORD", "delivery"),
			DBName:   getEnv("DB_NAME", "delivery"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Token: TokenConfig{
			Secret:      getEnv("TOKEN_SECRET", "dev-secret-change-me"),
			IdentityTTL: getDurationEnv("TOKEN_IDENTITY_TTL", 168*time.Hour),
			GrantTTL:    getDurationEnv("TOKEN_GRANT_TTL", 10*time.Minute),
		},
		Unit: UnitConfig{
			Endpoint:  getEnv("UNIT_S3_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("UNIT_S3_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("UNIT_S3_SECRET_KEY", "minioadmin"),
			UseSSL:    getBoolEnv("UNIT_S3_USE_SSL", false),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		NATSURL: getEnv("NATS_URL", "nats://localhost:4222"),
	}
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
