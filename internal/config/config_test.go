package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prbridge/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PRBRIDGE_GITHUB_WEBHOOK_SECRET", "gh-secret")
	t.Setenv("PRBRIDGE_SLACK_SIGNING_SECRET", "slack-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "prbridge.db", cfg.DBPath)
	assert.Equal(t, "gh-secret", cfg.GitHubWebhookSecret)
	assert.Equal(t, "slack-secret", cfg.SlackSigningSecret)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 256, cfg.QueueSize)
	assert.Equal(t, 2*time.Second, cfg.SettleDelay)
	assert.Equal(t, 72*time.Hour, cfg.ArchiveAfter)
	assert.Equal(t, 15*time.Minute, cfg.ReconcileInterval)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PRBRIDGE_LISTEN_ADDR", "0.0.0.0:9000")
	t.Setenv("PRBRIDGE_DB_PATH", "/data/bridge.db")
	t.Setenv("PRBRIDGE_WORKERS", "8")
	t.Setenv("PRBRIDGE_QUEUE_SIZE", "1024")
	t.Setenv("PRBRIDGE_SETTLE_DELAY", "500ms")
	t.Setenv("PRBRIDGE_ARCHIVE_AFTER", "168h")
	t.Setenv("PRBRIDGE_RECONCILE_INTERVAL", "1h")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, "/data/bridge.db", cfg.DBPath)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 1024, cfg.QueueSize)
	assert.Equal(t, 500*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, 168*time.Hour, cfg.ArchiveAfter)
	assert.Equal(t, time.Hour, cfg.ReconcileInterval)
}

func TestLoad_MissingGitHubSecret(t *testing.T) {
	t.Setenv("PRBRIDGE_GITHUB_WEBHOOK_SECRET", "")
	t.Setenv("PRBRIDGE_SLACK_SIGNING_SECRET", "slack-secret")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRBRIDGE_GITHUB_WEBHOOK_SECRET")
}

func TestLoad_MissingSlackSecret(t *testing.T) {
	t.Setenv("PRBRIDGE_GITHUB_WEBHOOK_SECRET", "gh-secret")
	t.Setenv("PRBRIDGE_SLACK_SIGNING_SECRET", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRBRIDGE_SLACK_SIGNING_SECRET")
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("PRBRIDGE_SETTLE_DELAY", "soon")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRBRIDGE_SETTLE_DELAY")
}

func TestLoad_InvalidWorkers(t *testing.T) {
	setRequired(t)
	t.Setenv("PRBRIDGE_WORKERS", "0")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRBRIDGE_WORKERS")
}
