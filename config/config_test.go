package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_NoVariables_UsesDefaults(t *testing.T) {
	// GIVEN an empty environment
	for _, k := range []string{
		"LEAVE_PORT", "LEAVE_STORE", "LEAVE_TRANSACTIONAL_VALIDATION", "LEAVE_KAFKA_BROKERS",
		"LEAVE_REQUEST_TIMEOUT", "LEAVE_RATE_LIMIT", "LEAVE_RATE_BURST", "LEAVE_CORS_ORIGINS",
		"LEAVE_SHORTAGE_INTERVAL", "LEAVE_LOG_LEVEL", "LEAVE_LOG_FORMAT", "LEAVE_SQLITE_PATH",
	} {
		t.Setenv(k, "")
	}

	// WHEN loading
	cfg, err := FromEnv()

	// THEN defaults apply
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.False(t, cfg.App.TransactionalValidation)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "leave.db", cfg.Store.SQLitePath)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "leave.requests.v1", cfg.Kafka.Topic)
	assert.Equal(t, 10*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, float64(20), cfg.HTTP.RateLimit)
	assert.Equal(t, 40, cfg.HTTP.RateBurst)
	assert.Equal(t, time.Hour, cfg.Monitor.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestFromEnv_Overrides_AreParsed(t *testing.T) {
	// GIVEN explicit settings
	t.Setenv("LEAVE_PORT", "9090")
	t.Setenv("LEAVE_STORE", "SQLite")
	t.Setenv("LEAVE_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("LEAVE_TRANSACTIONAL_VALIDATION", "true")
	t.Setenv("LEAVE_KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("LEAVE_SHORTAGE_INTERVAL", "15m")

	// WHEN loading
	cfg, err := FromEnv()

	// THEN they are honoured
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/x.db", cfg.Store.SQLitePath)
	assert.True(t, cfg.App.TransactionalValidation)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 15*time.Minute, cfg.Monitor.Interval)
}

func TestFromEnv_InvalidValues_ReturnError(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad port", "LEAVE_PORT", "http"},
		{"port out of range", "LEAVE_PORT", "70000"},
		{"unknown store", "LEAVE_STORE", "mongo"},
		{"postgres without dsn", "LEAVE_STORE", "postgres"},
		{"bad timeout", "LEAVE_REQUEST_TIMEOUT", "soon"},
		{"bad bool", "LEAVE_TRANSACTIONAL_VALIDATION", "maybe"},
		{"zero burst", "LEAVE_RATE_BURST", "0"},
		{"negative interval", "LEAVE_SHORTAGE_INTERVAL", "-1m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LEAVE_POSTGRES_DSN", "")
			t.Setenv(tt.key, tt.val)

			_, err := FromEnv()

			assert.Error(t, err)
		})
	}
}
