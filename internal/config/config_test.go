package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "todo-api", cfg.JWT.Issuer)
	assert.Equal(t, "todo-client", cfg.JWT.Audience)
	assert.Equal(t, 168*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "plaintext", cfg.Auth.PasswordScheme)
	assert.Equal(t, "dynamodb", cfg.Store.Backend)
	assert.Equal(t, "todo-users", cfg.DynamoDB.UsersTableName)
	assert.Equal(t, "todo-items", cfg.DynamoDB.ItemsTableName)
	assert.False(t, cfg.Idempotency.Enabled)
	assert.Equal(t, "/metrics", cfg.Observability.MetricsPath)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("AUTH_PASSWORD_SCHEME", "bcrypt")
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "bcrypt", cfg.Auth.PasswordScheme)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad password scheme", "AUTH_PASSWORD_SCHEME", "md5"},
		{"bad store backend", "STORE_BACKEND", "postgres"},
		{"bad port", "SERVER_PORT", "not-a-port"},
		{"port out of range", "SERVER_PORT", "70000"},
		{"zero token ttl", "JWT_TTL", "0s"},
		{"bad sample rate", "OBSERVABILITY_SAMPLE_RATE", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
