package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("ANON_TOKEN_SECRET", "anon")
	t.Setenv("IP_HASH_SALT", "salt")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 10, cfg.AnonDailyLimit)
	assert.Equal(t, 48*time.Hour, cfg.AnonTokenTTL)
	assert.Equal(t, 5*time.Second, cfg.VoteTimeout)
	assert.Equal(t, "@every 5m", cfg.ReconcileSchedule)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("ANON_DAILY_LIMIT", "3")
	t.Setenv("TIMEZONE", "Europe/Paris")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, 3, cfg.AnonDailyLimit)
	assert.Equal(t, "Europe/Paris", cfg.Location.String())
	assert.True(t, cfg.IsProduction())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing anon secret", map[string]string{"IP_HASH_SALT": "s"}},
		{"missing salt", map[string]string{"ANON_TOKEN_SECRET": "a"}},
		{"bad driver", map[string]string{"ANON_TOKEN_SECRET": "a", "IP_HASH_SALT": "s", "STORE_DRIVER": "sqlite"}},
		{"bad timezone", map[string]string{"ANON_TOKEN_SECRET": "a", "IP_HASH_SALT": "s", "TIMEZONE": "Mars/Olympus"}},
		{"zero limit", map[string]string{"ANON_TOKEN_SECRET": "a", "IP_HASH_SALT": "s", "ANON_DAILY_LIMIT": "0"}},
		{"bad duration", map[string]string{"ANON_TOKEN_SECRET": "a", "IP_HASH_SALT": "s", "VOTE_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ANON_TOKEN_SECRET", "")
			t.Setenv("IP_HASH_SALT", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
