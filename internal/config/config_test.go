package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 5*time.Minute, cfg.Inbox.PollInterval)
	assert.Equal(t, 500, cfg.Inbox.MaxMessageLength)
	assert.Equal(t, 24*time.Hour, cfg.Inbox.InitialLookback)
	assert.False(t, cfg.Inbox.MonitoringEnabled)
	assert.False(t, cfg.Inbox.HasCredentials())
	assert.Equal(t, []string{"email"}, cfg.Dispatch.Channels)
	assert.Equal(t, "Blood Donation Coordination", cfg.SMTP.FromName)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("BLOODLINK_SERVER_PORT", "9090")
	t.Setenv("BLOODLINK_INBOX_POLL_INTERVAL", "30s")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("INBOX_MONITORING_ENABLED", "true")
	t.Setenv("INBOX_HOST", "imap.example.com")
	t.Setenv("INBOX_USERNAME", "coord")
	t.Setenv("INBOX_PASSWORD", "pw")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Inbox.PollInterval)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.True(t, cfg.Inbox.MonitoringEnabled)
	assert.True(t, cfg.Inbox.HasCredentials())
	assert.Equal(t, 993, cfg.Inbox.Port)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
}

func TestLoadConfig_InvalidEnv(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-port")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "smtp environment")
}

func TestToPoolConfig(t *testing.T) {
	d := DispatchConfig{Workers: 3, QueueSize: 9, TaskTimeout: time.Second}
	p := d.ToPoolConfig()
	assert.Equal(t, 3, p.Workers)
	assert.Equal(t, 9, p.QueueSize)
	assert.Equal(t, time.Second, p.TaskTimeout)
}
