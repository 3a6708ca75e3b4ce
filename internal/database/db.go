// Package database manages the PostgreSQL connection pool and versioned
// schema migrations for the memory store.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/sirupsen/logrus"
)

// Config holds PostgreSQL configuration.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultConfig returns default PostgreSQL configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Database:        "postgres",
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ConnectTimeout:  30 * time.Second,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid port")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf("host=%s port=%d user=%s dbname=%s",
		c.Host, c.Port, c.User, c.Database)
	if c.Password != "" {
		connStr += fmt.Sprintf(" password=%s", c.Password)
	}
	if c.SSLMode != "" {
		connStr += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	if c.ConnectTimeout > 0 {
		connStr += fmt.Sprintf(" connect_timeout=%d", int(c.ConnectTimeout.Seconds()))
	}
	return connStr
}

// NewPool opens a pgx connection pool with pgvector type support registered
// on every connection. The pool is the only shared resource between memory
// operations; callers own its lifetime.
//
// The schema migrator must have run first: type registration fails when the
// vector extension does not exist yet.
func NewPool(ctx context.Context, config *Config, log *logrus.Logger) (*pgxpool.Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = config.MaxConns
	poolConfig.MinConns = config.MinConns
	poolConfig.MaxConnLifetime = config.MaxConnLifetime
	poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithFields(logrus.Fields{
		"host":     config.Host,
		"database": config.Database,
	}).Info("Connected to PostgreSQL")

	return pool, nil
}

// Connect opens the single migration connection. The migrator runs before
// the pool exists, so no vector type registration happens here.
func Connect(ctx context.Context, config *Config) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}
