package database

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NotNil(t, config)

	assert.Equal(t, "localhost", config.Host)
	assert.Equal(t, 5432, config.Port)
	assert.Equal(t, "postgres", config.User)
	assert.Equal(t, "postgres", config.Database)
	assert.Equal(t, "disable", config.SSLMode)
	assert.Equal(t, int32(10), config.MaxConns)
	assert.Equal(t, int32(2), config.MinConns)
	assert.NoError(t, config.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default",
			modify: func(c *Config) {},
		},
		{
			name:    "missing host",
			modify:  func(c *Config) { c.Host = "" },
			wantErr: "host is required",
		},
		{
			name:    "zero port",
			modify:  func(c *Config) { c.Port = 0 },
			wantErr: "invalid port",
		},
		{
			name:    "negative port",
			modify:  func(c *Config) { c.Port = -5432 },
			wantErr: "invalid port",
		},
		{
			name:    "missing user",
			modify:  func(c *Config) { c.User = "" },
			wantErr: "user is required",
		},
		{
			name:    "missing database",
			modify:  func(c *Config) { c.Database = "" },
			wantErr: "database is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	config := &Config{
		Host:           "db.example.com",
		Port:           5433,
		User:           "memstore",
		Password:       "secret",
		Database:       "memories",
		SSLMode:        "require",
		ConnectTimeout: 10 * time.Second,
	}

	connStr := config.ConnectionString()
	assert.Equal(t, "host=db.example.com port=5433 user=memstore dbname=memories password=secret sslmode=require connect_timeout=10", connStr)
}

func TestConnectionStringOmitsEmptyParts(t *testing.T) {
	config := &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Database: "postgres",
	}

	connStr := config.ConnectionString()
	assert.Equal(t, "host=localhost port=5432 user=postgres dbname=postgres", connStr)
	assert.NotContains(t, connStr, "password")
	assert.NotContains(t, connStr, "sslmode")
}

func TestNewPoolRejectsInvalidConfig(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	config := DefaultConfig()
	config.Host = ""

	pool, err := NewPool(context.Background(), config, logger)
	require.Error(t, err)
	assert.Nil(t, pool)
	assert.Contains(t, err.Error(), "invalid config")
}
