package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	config := Load()

	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, "release", config.Server.Mode)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)

	assert.Equal(t, "localhost", config.Database.Host)
	assert.Equal(t, 5432, config.Database.Port)
	assert.Equal(t, "memstore", config.Database.Database)
	assert.Equal(t, int32(10), config.Database.MaxConns)

	assert.Equal(t, "http://localhost:11434", config.Embeddings.APIURL)
	assert.Equal(t, "all-minilm", config.Embeddings.Model)
	assert.Equal(t, 10*time.Second, config.Embeddings.Timeout)

	assert.NoError(t, config.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_MODE", "debug")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_MAX_CONNS", "50")
	t.Setenv("DB_MAX_CONN_LIFETIME", "15m")
	t.Setenv("EMBEDDINGS_MODEL", "nomic-embed-text")

	config := Load()

	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, "debug", config.Server.Mode)
	assert.Equal(t, "db.internal", config.Database.Host)
	assert.Equal(t, 5433, config.Database.Port)
	assert.Equal(t, int32(50), config.Database.MaxConns)
	assert.Equal(t, 15*time.Minute, config.Database.MaxConnLifetime)
	assert.Equal(t, "nomic-embed-text", config.Embeddings.Model)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("DB_CONNECT_TIMEOUT", "soon")

	config := Load()

	assert.Equal(t, 5432, config.Database.Port)
	assert.Equal(t, 30*time.Second, config.Database.ConnectTimeout)
}

func TestValidate(t *testing.T) {
	config := Load()
	config.Server.Port = ""
	require.Error(t, config.Validate())
	assert.Contains(t, config.Validate().Error(), "server port")

	config = Load()
	config.Database.Host = ""
	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database config")

	config = Load()
	config.Embeddings.Model = ""
	err = config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embeddings config")
}
