package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("SYNC_CONCURRENCY", "")
	t.Setenv("SYNC_CALL_TIMEOUT", "")
	t.Setenv("BOOKING_CREATE_EVENT", "")
	t.Setenv("EMAIL_DOMAIN_CHECK", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 4, cfg.SyncConcurrency)
	assert.Equal(t, 15*time.Second, cfg.SyncCallTimeout)
	assert.True(t, cfg.BookingCreateEvent)
	assert.True(t, cfg.EmailDomainCheck)
	assert.False(t, cfg.GoogleConfigured())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SYNC_CONCURRENCY", "8")
	t.Setenv("SYNC_CALL_TIMEOUT", "3s")
	t.Setenv("BOOKING_CREATE_EVENT", "false")
	t.Setenv("EMAIL_DOMAIN_CHECK", "false")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, 8, cfg.SyncConcurrency)
	assert.Equal(t, 3*time.Second, cfg.SyncCallTimeout)
	assert.False(t, cfg.BookingCreateEvent)
	assert.False(t, cfg.EmailDomainCheck)
	assert.True(t, cfg.GoogleConfigured())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SYNC_CONCURRENCY", "many")
	t.Setenv("SYNC_LOOKAHEAD", "-1h")

	cfg := Load()

	assert.Equal(t, 4, cfg.SyncConcurrency)
	assert.Equal(t, 180*24*time.Hour, cfg.SyncLookahead)
}
