package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POSTBOT_TELEGRAM_TOKEN", "test-token")
	t.Setenv("POSTBOT_TELEGRAM_ADMIN_ID", "12345")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Telegram.Token)
	assert.Equal(t, int64(12345), cfg.Telegram.AdminID)

	// Defaults
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddress())
	assert.Equal(t, time.Minute, cfg.Scheduler.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Lookahead)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.MinLead)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.MaxHorizon)
	assert.Equal(t, 500*time.Millisecond, cfg.Scheduler.SendDelay)
	assert.Equal(t, 1, cfg.Limits.Channels)
	assert.Equal(t, 3, cfg.Limits.PostsPerDay)
	assert.Equal(t, "PRO", cfg.Tariff.Name)
	assert.Equal(t, 2, cfg.Tariff.Channels)
	assert.Equal(t, 8, cfg.Tariff.PostsPerDay)
	assert.Equal(t, 30, cfg.Tariff.DurationDays)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
telegram:
  token: file-token
  admin_id: 777
server:
  port: 9090
scheduler:
  sweep_interval: 30s
  max_horizon: 48h
tariff:
  name: PREMIUM
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, int64(777), cfg.Telegram.AdminID)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.SweepInterval)
	assert.Equal(t, 48*time.Hour, cfg.Scheduler.MaxHorizon)
	assert.Equal(t, "PREMIUM", cfg.Tariff.Name)
	// Untouched sections keep their defaults.
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.MinLead)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Telegram: TelegramConfig{Token: "t", AdminID: 1},
		Scheduler: SchedulerConfig{
			MinLead:    2 * time.Minute,
			MaxHorizon: 24 * time.Hour,
		},
	}
	assert.NoError(t, valid.Validate())

	noToken := valid
	noToken.Telegram.Token = ""
	assert.Error(t, noToken.Validate())

	noAdmin := valid
	noAdmin.Telegram.AdminID = 0
	assert.Error(t, noAdmin.Validate())

	badWindow := valid
	badWindow.Scheduler.MinLead = 48 * time.Hour
	assert.Error(t, badWindow.Validate())
}
