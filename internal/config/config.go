// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"dev.helix.memstore/internal/database"
	"dev.helix.memstore/internal/embeddings"
)

// Config is the full process configuration, assembled once at startup and
// passed down explicitly; nothing reads the environment after Load.
type Config struct {
	Server     ServerConfig
	Database   database.Config
	Embeddings embeddings.Config
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host         string
	Port         string
	Mode         string // gin mode: "debug" or "release"
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load builds a Config from environment variables, falling back to local
// development defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			Mode:         getEnv("SERVER_MODE", "release"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: database.Config{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "memstore"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns:        int32(getEnvInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
			ConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", 30*time.Second),
		},
		Embeddings: embeddings.Config{
			APIURL:  getEnv("EMBEDDINGS_API_URL", "http://localhost:11434"),
			Model:   getEnv("EMBEDDINGS_MODEL", "all-minilm"),
			Timeout: getEnvDuration("EMBEDDINGS_TIMEOUT", 10*time.Second),
		},
	}
}

// Validate validates the assembled configuration.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	if err := c.Embeddings.Validate(); err != nil {
		return fmt.Errorf("embeddings config: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
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
