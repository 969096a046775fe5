package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Chunking  ChunkingConfig
	Retrieval RetrievalConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// Connection pool settings
	MaxConns int
	MinConns int
}

// EmbeddingConfig holds remote embedding function configuration
type EmbeddingConfig struct {
	APIKey   string
	Endpoint string
	Model    string
	// Dimensions is the exact vector length every accepted embedding must
	// have; anything else is rejected
	Dimensions int
	Timeout    time.Duration
	// Workers bounds concurrent embedding calls per batch
	Workers int
	// RequestsPerSecond limits outbound call rate (0 disables limiting)
	RequestsPerSecond float64
}

// RetrievalConfig holds retrieval engine defaults
type RetrievalConfig struct {
	DefaultMaxResults int
	DefaultThreshold  float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// MetricsConfig holds metrics exposure configuration
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getIntEnv("DB_PORT", 5432),
			Database: getEnv("DB_NAME", "chunkindex"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSLMODE", "prefer"),
			MaxConns: getIntEnv("DB_MAX_CONNS", 10),
			MinConns: getIntEnv("DB_MIN_CONNS", 2),
		},
		Embedding: EmbeddingConfig{
			APIKey:            getEnv("EMBEDDING_API_KEY", ""),
			Endpoint:          getEnv("EMBEDDING_ENDPOINT", ""),
			Model:             getEnv("EMBEDDING_MODEL", "text-embedding-3-large"),
			Dimensions:        getIntEnv("EMBEDDING_DIMENSIONS", 3072),
			Timeout:           getDurationEnv("EMBEDDING_TIMEOUT", 30*time.Second),
			Workers:           getIntEnv("EMBEDDING_WORKERS", 4),
			RequestsPerSecond: getFloatEnv("EMBEDDING_RPS", 10),
		},
		Chunking: LoadChunkingConfig(getEnv("CHUNKING_CONFIG_PATH", "")),
		Retrieval: RetrievalConfig{
			DefaultMaxResults: getIntEnv("RETRIEVAL_MAX_RESULTS", 10),
			DefaultThreshold:  getFloatEnv("RETRIEVAL_THRESHOLD", 0.5),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:  getBoolEnv("METRICS_ENABLED", true),
			Endpoint: getEnv("METRICS_ENDPOINT", "/metrics"),
		},
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets duration from environment variable with default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets integer from environment variable with default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnv gets float from environment variable with default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv gets boolean from environment variable with default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// Validate validates the configuration. Configuration errors are fatal by
// policy: the process must not start with an unknown scale name or an
// unusable embedding dimensionality.
func (c *Config) Validate() error {
	if c.Embedding.Dimensions <= 0 {
		return &ConfigError{Field: "EMBEDDING_DIMENSIONS", Message: "embedding dimensionality must be positive"}
	}
	if c.Embedding.Workers <= 0 {
		return &ConfigError{Field: "EMBEDDING_WORKERS", Message: "worker count must be positive"}
	}
	if c.Retrieval.DefaultThreshold < 0 || c.Retrieval.DefaultThreshold > 1 {
		return &ConfigError{Field: "RETRIEVAL_THRESHOLD", Message: "similarity threshold must be in [0,1]"}
	}
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	return nil
}

// ConfigError represents configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
