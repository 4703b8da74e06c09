package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Auth modes
const (
	AuthModeFirebase = "firebase"
	AuthModeHMAC     = "hmac"
)

// Config holds all server configuration
type Config struct {
	ServerPort     int
	LogLevel       string
	AllowedOrigins []string
	DBConfig       DatabaseConfig
	AuthConfig     AuthConfig

	// ColumnAliases maps table -> canonical column -> accepted spellings
	ColumnAliases map[string]map[string][]string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type     string
	Host     string
	Port     int
	Socket   string
	User     string
	Password string
	Name     string
	SSLMode  string
	PoolSize int

	// Statements slower than this are logged as warnings
	SlowQueryThreshold time.Duration
}

// AuthConfig selects how bearer credentials are verified
type AuthConfig struct {
	Mode              string
	FirebaseProjectID string
	JWTSecret         string
}

// LoadConfig loads the configuration from environment variables. Values from
// envFile (or ./.env when envFile is empty and the file exists) fill in
// variables that are not already set.
func LoadConfig(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	port, err := getEnvInt("SERVER_PORT", 3001)
	if err != nil {
		return nil, err
	}
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	poolSize, err := getEnvInt("DB_POOL_SIZE", 10)
	if err != nil {
		return nil, err
	}
	slowQuery, err := getEnvDuration("DB_SLOW_QUERY_THRESHOLD", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	aliases, err := getEnvJSONAliases("COLUMN_ALIASES")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:     port,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		DBConfig: DatabaseConfig{
			Type:     getEnv("DB_TYPE", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			Socket:   getEnv("DB_SOCKET", ""),
			User:     getEnv("DB_USER", ""),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", ""),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			PoolSize: poolSize,

			SlowQueryThreshold: slowQuery,
		},
		AuthConfig: AuthConfig{
			Mode:              strings.ToLower(getEnv("AUTH_MODE", AuthModeFirebase)),
			FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", ""),
			JWTSecret:         getEnv("AUTH_JWT_SECRET", ""),
		},
		ColumnAliases: aliases,
	}

	return cfg, nil
}

// Validate checks settings that depend on each other
func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port: %d", c.ServerPort)
	}
	if c.DBConfig.PoolSize <= 0 {
		return fmt.Errorf("invalid database pool size: %d", c.DBConfig.PoolSize)
	}

	switch c.AuthConfig.Mode {
	case AuthModeFirebase:
		if c.AuthConfig.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required when AUTH_MODE is firebase")
		}
	case AuthModeHMAC:
		if c.AuthConfig.JWTSecret == "" {
			return errors.New("AUTH_JWT_SECRET is required when AUTH_MODE is hmac")
		}
	default:
		return fmt.Errorf("unsupported auth mode: %q", c.AuthConfig.Mode)
	}

	return nil
}

func loadEnvFile(envFile string) error {
	if envFile == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		envFile = ".env"
	}

	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// getEnvJSONAliases decodes a JSON object such as
// {"work_orders":{"work_center":["workcenter","wc_code"]}}
func getEnvJSONAliases(key string) (map[string]map[string][]string, error) {
	value := os.Getenv(key)
	if value == "" {
		return nil, nil
	}
	var aliases map[string]map[string][]string
	if err := json.Unmarshal([]byte(value), &aliases); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return aliases, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
